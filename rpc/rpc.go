package rpc

import (
	"net"
	"net/rpc"

	"github.com/fireteamhq/lobbyserver/lobby"
	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/models"
	"github.com/fireteamhq/lobbyserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyDirectory exposes operational queries over net/rpc: the live lobby
// list and per-player career stats.
type LobbyDirectory struct {
	lobbyManager *lobby.Manager
	statsService *services.StatsService
}

func NewLobbyDirectory(lm *lobby.Manager, ss *services.StatsService) *LobbyDirectory {
	return &LobbyDirectory{lobbyManager: lm, statsService: ss}
}

type ListLobbiesArgs struct{}

type ListLobbiesReply struct {
	Lobbies []models.LobbyInfo
}

func (d *LobbyDirectory) ListLobbies(args *ListLobbiesArgs, reply *ListLobbiesReply) error {
	reply.Lobbies = d.lobbyManager.List()
	return nil
}

type CareerStatsArgs struct {
	Player string
}

type CareerStatsReply struct {
	Stats models.CareerStats
}

func (d *LobbyDirectory) GetCareerStats(args *CareerStatsArgs, reply *CareerStatsReply) error {
	stats, err := d.statsService.GetCareerStats(args.Player)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
