// network/protocol.go
package network

import (
	"encoding/json"

	"github.com/fireteamhq/lobbyserver/models"
)

// 入站消息类型
const (
	MsgTypeCreateLobby = "createLobby"
	MsgTypeJoinLobby   = "joinLobby"
	MsgTypeSpin        = "spin"
	MsgTypeUpdateScore = "updateScore"
)

// 出站事件类型
const (
	EventLobbyCreated = "lobbyCreated"
	EventError        = "error"
	EventPlayerJoined = "playerJoined"
	EventSpinResult   = "spinResult"
	EventScoreUpdated = "scoreUpdated"
	EventPlayerLeft   = "playerLeft"
)

// ClientMessage is the envelope for every inbound message. Fields beyond
// Type are populated per message type; unused ones stay zero.
type ClientMessage struct {
	Type       string          `json:"type"`
	Code       string          `json:"code,omitempty"`
	PlayerName string          `json:"playerName,omitempty"`
	SpinData   json.RawMessage `json:"spinData,omitempty"`
	Player     string          `json:"player,omitempty"`
	Points     int             `json:"points,omitempty"`
	ActionType string          `json:"actionType,omitempty"`
}

type LobbyCreatedEvent struct {
	Type      string `json:"type"`
	LobbyCode string `json:"lobbyCode"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PlayerJoinedEvent struct {
	Type       string                        `json:"type"`
	PlayerName string                        `json:"playerName"`
	Players    map[string]models.PlayerStats `json:"players"`
}

type SpinResultEvent struct {
	Type     string          `json:"type"`
	SpinData json.RawMessage `json:"spinData"`
}

type ScoreUpdatedEvent struct {
	Type              string                        `json:"type"`
	Players           map[string]models.PlayerStats `json:"players"`
	FireteamSkillRank int                           `json:"fireteamSkillRank"`
}

type PlayerLeftEvent struct {
	Type       string                        `json:"type"`
	PlayerName string                        `json:"playerName"`
	Players    map[string]models.PlayerStats `json:"players"`
}
