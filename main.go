package main

import (
	"github.com/fireteamhq/lobbyserver/config"
	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/persistence"
	"github.com/fireteamhq/lobbyserver/server"
	"github.com/fireteamhq/lobbyserver/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize optional stats database. Lobby state itself is never
	// persisted; with no postgres configured the server runs in-memory.
	var db persistence.Database
	if cfg.Database.Postgres.Host != "" {
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	} else {
		logger.Log.Info("No database configured, running without stats persistence.")
	}

	statsService := services.NewStatsService(db)

	// Initialize Lobby Server
	lobbyServer := server.NewLobbyServer(cfg, statsService)

	// Start Server
	logger.Log.Infof("Starting lobby server on %s", cfg.Server.HTTPAddress)
	if err := lobbyServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
