// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fireteamhq/lobbyserver/models"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
)

// PostgreSQL 数据库实现（不经过GORM）
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS lobby_records (
            id SERIAL PRIMARY KEY,
            code VARCHAR(16) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS score_events (
            id SERIAL PRIMARY KEY,
            lobby_code VARCHAR(16) NOT NULL,
            player VARCHAR(255) NOT NULL,
            points INTEGER NOT NULL,
            action_type VARCHAR(50) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS player_careers (
            id SERIAL PRIMARY KEY,
            player VARCHAR(255) UNIQUE NOT NULL,
            total_score BIGINT NOT NULL DEFAULT 0,
            wins BIGINT NOT NULL DEFAULT 0,
            losses BIGINT NOT NULL DEFAULT 0,
            events BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_lobby_records_code ON lobby_records(code);
        CREATE INDEX IF NOT EXISTS idx_score_events_lobby_code ON score_events(lobby_code);
        CREATE INDEX IF NOT EXISTS idx_score_events_player ON score_events(player);
    `)

	return err
}

// SaveLobbyRecord 记录一次大厅创建
func (p *PostgreSQL) SaveLobbyRecord(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `INSERT INTO lobby_records (code) VALUES ($1)`, code)
	return err
}

// SaveScoreEvent 追加一条记分事件并更新玩家累计战绩
func (p *PostgreSQL) SaveScoreEvent(event models.ScoreEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO score_events (lobby_code, player, points, action_type)
        VALUES ($1, $2, $3, $4)
    `, event.LobbyCode, event.Player, event.Points, event.ActionType)
	if err != nil {
		return err
	}

	wins := 0
	if event.ActionType == "win" {
		wins = 1
	}
	losses := 0
	if event.ActionType == "loss" {
		losses = 1
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO player_careers (player, total_score, wins, losses, events)
        VALUES ($1, $2, $3, $4, 1)
        ON CONFLICT (player)
        DO UPDATE SET
            total_score = player_careers.total_score + $2,
            wins = player_careers.wins + $3,
            losses = player_careers.losses + $4,
            events = player_careers.events + 1,
            updated_at = CURRENT_TIMESTAMP
    `, event.Player, event.Points, wins, losses)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetCareerStats 查询玩家累计战绩
func (p *PostgreSQL) GetCareerStats(player string) (models.CareerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var stats models.CareerStats
	query := `SELECT player, total_score, wins, losses, events FROM player_careers WHERE player = $1`
	err := p.db.QueryRowContext(ctx, query, player).Scan(
		&stats.Player, &stats.TotalScore, &stats.Wins, &stats.Losses, &stats.Events)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.CareerStats{}, ErrRecordNotFound
		}
		return models.CareerStats{}, err
	}

	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
