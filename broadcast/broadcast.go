// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToLobby(lobbyCode string, event interface{}) error
}

// LobbyBroadcaster fans one event out to every session tagged with a lobby
// code. Delivery is best effort: a recipient that closed or fell behind is
// skipped, never waited on, so one stalled client cannot stall the rest of
// the lobby.
type LobbyBroadcaster struct {
	sessionManager *session.Manager
}

func NewLobbyBroadcaster(sessionManager *session.Manager) *LobbyBroadcaster {
	return &LobbyBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *LobbyBroadcaster) BroadcastToLobby(lobbyCode string, event interface{}) error {
	if lobbyCode == "" {
		// 未加入大厅的连接广播不到任何人
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// ForLobby returns a stable snapshot; joins and leaves during the
	// fan-out cannot disturb the iteration.
	for _, s := range b.sessionManager.ForLobby(lobbyCode) {
		if err := s.Send(data); err != nil {
			logger.Log.Warnf("Dropping event for session %s in lobby %s: %v", s.GetID(), lobbyCode, err)
			continue
		}
	}

	return nil
}
