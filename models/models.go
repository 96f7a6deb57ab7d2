// models/models.go
package models

import (
	"time"
)

// PlayerStats 单个玩家在一个大厅内的统计
type PlayerStats struct {
	Score  int `json:"score"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// LobbyInfo 大厅概览（用于RPC查询）
type LobbyInfo struct {
	Code              string    `json:"code"`
	PlayerCount       int       `json:"player_count"`
	FireteamSkillRank int       `json:"fireteam_skill_rank"`
	CreatedAt         time.Time `json:"created_at"`
}

// CareerStats 玩家跨大厅的累计战绩
type CareerStats struct {
	Player     string `json:"player"`
	TotalScore int64  `json:"total_score"`
	Wins       int64  `json:"wins"`
	Losses     int64  `json:"losses"`
	Events     int64  `json:"events"`
}

// ScoreEvent 一次记分动作的持久化记录
type ScoreEvent struct {
	LobbyCode  string    `json:"lobby_code"`
	Player     string    `json:"player"`
	Points     int       `json:"points"`
	ActionType string    `json:"action_type"`
	CreatedAt  time.Time `json:"created_at"`
}
