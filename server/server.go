package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fireteamhq/lobbyserver/broadcast"
	"github.com/fireteamhq/lobbyserver/config"
	"github.com/fireteamhq/lobbyserver/lobby"
	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/models"
	"github.com/fireteamhq/lobbyserver/monitor"
	"github.com/fireteamhq/lobbyserver/network"
	lobbyserver_rpc "github.com/fireteamhq/lobbyserver/rpc"
	"github.com/fireteamhq/lobbyserver/services"
	"github.com/fireteamhq/lobbyserver/session"
	"github.com/fireteamhq/lobbyserver/timer"
)

type LobbyServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	lobbyManager   *lobby.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	statsService   *services.StatsService
	rpcServer      *lobbyserver_rpc.Server
	monitor        *monitor.Monitor
	timerManager   *timer.Manager
	shutdownChan   chan struct{}
}

func NewLobbyServer(cfg *config.Config, statsService *services.StatsService) *LobbyServer {
	s := &LobbyServer{
		cfg:            cfg,
		lobbyManager:   lobby.NewManager(cfg.Lobby.CodeLength),
		sessionManager: session.NewManager(),
		statsService:   statsService,
		monitor:        monitor.NewMonitor("lobbyserver"),
		timerManager:   timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewLobbyBroadcaster(s.sessionManager)

	// 初始化RPC服务器
	rpcServer, err := lobbyserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	directory := lobbyserver_rpc.NewLobbyDirectory(s.lobbyManager, s.statsService)
	rpc.Register(directory)

	// 空大厅回收
	s.timerManager.Schedule(cfg.Lobby.ReapInterval, cfg.Lobby.ReapInterval, s.reapIdleLobbies)

	return s
}

func (s *LobbyServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Lobby server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *LobbyServer) Shutdown() {
	close(s.shutdownChan)
	s.timerManager.Stop()
	s.rpcServer.Stop()
}

func (s *LobbyServer) reapIdleLobbies() {
	reaped := s.lobbyManager.ReapIdle(s.cfg.Lobby.EmptyTTL)
	if len(reaped) > 0 {
		logger.Log.Infof("Reaped %d idle lobbies: %v", len(reaped), reaped)
		s.monitor.SetActiveLobbies(s.lobbyManager.Count())
	}
}

func (s *LobbyServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn, s.cfg.Lobby.SendBufferSize))
}

func (s *LobbyServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOpenConnections()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.monitor.DecOpenConnections()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleMessage(sess, data)
		}
	}
}

// handleMessage decodes one inbound message and dispatches on its type.
// Malformed or unknown messages are logged and dropped; a bad message from
// one client must never disturb the others.
func (s *LobbyServer) handleMessage(sess *session.Session, data []byte) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	sess.Touch()

	var msg network.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Log.Warnf("Session %s sent malformed message: %v", sess.GetID(), err)
		return
	}

	switch msg.Type {
	case network.MsgTypeCreateLobby:
		s.handleCreateLobby(sess)
	case network.MsgTypeJoinLobby:
		s.handleJoinLobby(sess, msg)
	case network.MsgTypeSpin:
		s.handleSpin(sess, msg)
	case network.MsgTypeUpdateScore:
		s.handleUpdateScore(sess, msg)
	default:
		logger.Log.Infof("Unknown message type: %q", msg.Type)
	}

	s.monitor.ObserveDispatchLatency(time.Since(start))
}

func (s *LobbyServer) handleCreateLobby(sess *session.Session) {
	newLobby, err := s.lobbyManager.Create()
	if err != nil {
		logger.Log.Errorf("Session %s could not create lobby: %v", sess.GetID(), err)
		s.sendEvent(sess, network.ErrorEvent{
			Type:    network.EventError,
			Message: "Could not create lobby",
		})
		return
	}

	logger.Log.Infof("Session %s created lobby %s", sess.GetID(), newLobby.Code)
	s.monitor.SetActiveLobbies(s.lobbyManager.Count())
	s.statsService.RecordLobbyCreated(newLobby.Code)

	// 创建者不自动入厅，需另发joinLobby
	s.sendEvent(sess, network.LobbyCreatedEvent{
		Type:      network.EventLobbyCreated,
		LobbyCode: newLobby.Code,
	})
}

func (s *LobbyServer) handleJoinLobby(sess *session.Session, msg network.ClientMessage) {
	if msg.PlayerName == "" {
		logger.Log.Warnf("Session %s sent joinLobby without a player name", sess.GetID())
		return
	}

	target, exists := s.lobbyManager.Get(msg.Code)
	if !exists {
		s.sendEvent(sess, network.ErrorEvent{
			Type:    network.EventError,
			Message: "Invalid lobby code",
		})
		return
	}

	// 一个连接同时只属于一个大厅：换厅前先退出旧厅
	if prevCode, prevName := sess.Membership(); prevCode != "" && prevCode != msg.Code {
		s.leaveLobby(sess, prevCode, prevName)
	}

	players := target.AddPlayer(msg.PlayerName)
	sess.Join(msg.Code, msg.PlayerName)

	logger.Log.Infof("Session %s joined lobby %s as %q", sess.GetID(), msg.Code, msg.PlayerName)

	s.broadcaster.BroadcastToLobby(msg.Code, network.PlayerJoinedEvent{
		Type:       network.EventPlayerJoined,
		PlayerName: msg.PlayerName,
		Players:    players,
	})
}

func (s *LobbyServer) handleSpin(sess *session.Session, msg network.ClientMessage) {
	code := sess.LobbyCode()
	if code == "" {
		// 未入厅的spin广播不到任何人
		return
	}

	s.broadcaster.BroadcastToLobby(code, network.SpinResultEvent{
		Type:     network.EventSpinResult,
		SpinData: msg.SpinData,
	})
}

func (s *LobbyServer) handleUpdateScore(sess *session.Session, msg network.ClientMessage) {
	code := sess.LobbyCode()
	if code == "" {
		return
	}

	target, exists := s.lobbyManager.Get(code)
	if !exists {
		return
	}

	players, rank, err := target.UpdateScore(msg.Player, msg.Points, msg.ActionType)
	if err != nil {
		// 客户端名单可能已过期，按无操作处理
		logger.Log.Warnf("Session %s scored unknown player %q in lobby %s", sess.GetID(), msg.Player, code)
		return
	}

	s.statsService.RecordScoreEvent(models.ScoreEvent{
		LobbyCode:  code,
		Player:     msg.Player,
		Points:     msg.Points,
		ActionType: msg.ActionType,
		CreatedAt:  time.Now(),
	})

	s.broadcaster.BroadcastToLobby(code, network.ScoreUpdatedEvent{
		Type:              network.EventScoreUpdated,
		Players:           players,
		FireteamSkillRank: rank,
	})
}

func (s *LobbyServer) handleDisconnect(sess *session.Session) {
	// 先从注册表摘除，离场广播不会再发给断开的连接
	s.sessionManager.Remove(sess.GetID())

	code, name := sess.Membership()
	if code == "" {
		return
	}
	s.leaveLobby(sess, code, name)
}

func (s *LobbyServer) leaveLobby(sess *session.Session, code, name string) {
	sess.Leave()

	target, exists := s.lobbyManager.Get(code)
	if !exists {
		return
	}

	players, empty := target.RemovePlayer(name)
	if empty {
		logger.Log.Infof("Lobby %s is now empty", code)
	}

	s.broadcaster.BroadcastToLobby(code, network.PlayerLeftEvent{
		Type:       network.EventPlayerLeft,
		PlayerName: name,
		Players:    players,
	})
}

func (s *LobbyServer) sendEvent(sess *session.Session, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("Failed to marshal event for session %s: %v", sess.GetID(), err)
		return
	}
	if err := sess.Send(data); err != nil {
		logger.Log.Warnf("Failed to send event to session %s: %v", sess.GetID(), err)
	}
}
