// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fireteamhq/lobbyserver/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(
		&models.GormLobbyRecord{},
		&models.GormScoreEvent{},
		&models.GormPlayerCareer{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveLobbyRecord 记录一次大厅创建
func (p *GormPostgreSQL) SaveLobbyRecord(code string) error {
	return p.db.Create(&models.GormLobbyRecord{Code: code}).Error
}

// SaveScoreEvent 追加一条记分事件并更新玩家累计战绩
func (p *GormPostgreSQL) SaveScoreEvent(event models.ScoreEvent) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.GormScoreEvent{
			LobbyCode:  event.LobbyCode,
			Player:     event.Player,
			Points:     event.Points,
			ActionType: event.ActionType,
		}).Error; err != nil {
			return err
		}

		var career models.GormPlayerCareer
		err := tx.Where("player = ?", event.Player).First(&career).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			career = models.GormPlayerCareer{Player: event.Player}
			if err := tx.Create(&career).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"total_score": gorm.Expr("total_score + ?", event.Points),
			"events":      gorm.Expr("events + 1"),
		}
		if event.ActionType == "win" {
			updates["wins"] = gorm.Expr("wins + 1")
		}
		if event.ActionType == "loss" {
			updates["losses"] = gorm.Expr("losses + 1")
		}

		return tx.Model(&models.GormPlayerCareer{}).
			Where("player = ?", event.Player).
			Updates(updates).Error
	})
}

// GetCareerStats 查询玩家累计战绩
func (p *GormPostgreSQL) GetCareerStats(player string) (models.CareerStats, error) {
	var career models.GormPlayerCareer
	err := p.db.Where("player = ?", player).First(&career).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CareerStats{}, ErrRecordNotFound
	}
	if err != nil {
		return models.CareerStats{}, err
	}

	return models.CareerStats{
		Player:     career.Player,
		TotalScore: career.TotalScore,
		Wins:       career.Wins,
		Losses:     career.Losses,
		Events:     career.Events,
	}, nil
}

// Transaction 在事务中执行fn
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
