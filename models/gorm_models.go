// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormLobbyRecord 大厅创建记录
type GormLobbyRecord struct {
	gorm.Model
	Code string `gorm:"index;not null"`
}

// GormScoreEvent 记分事件记录
type GormScoreEvent struct {
	gorm.Model
	LobbyCode  string `gorm:"index;not null"`
	Player     string `gorm:"index;not null"`
	Points     int    `gorm:"not null"`
	ActionType string `gorm:"not null"`
}

// GormPlayerCareer 玩家累计战绩
type GormPlayerCareer struct {
	gorm.Model
	Player     string `gorm:"uniqueIndex;not null"`
	TotalScore int64  `gorm:"default:0"`
	Wins       int64  `gorm:"default:0"`
	Losses     int64  `gorm:"default:0"`
	Events     int64  `gorm:"default:0"`
}
