// services/stats_service.go
package services

import (
	"errors"

	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/models"
	"github.com/fireteamhq/lobbyserver/persistence"
)

var ErrStatsDisabled = errors.New("stats persistence not configured")

// StatsService records lobby and score history and answers career-stats
// queries. The database is optional; with no database every record call is a
// no-op so the router never depends on postgres being up.
type StatsService struct {
	db persistence.Database
}

func NewStatsService(db persistence.Database) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Enabled() bool {
	return s.db != nil
}

// RecordLobbyCreated persists the creation asynchronously. Storage failures
// are logged, never surfaced to the lobby router.
func (s *StatsService) RecordLobbyCreated(code string) {
	if s.db == nil {
		return
	}
	go func() {
		if err := s.db.SaveLobbyRecord(code); err != nil {
			logger.Log.Errorf("Failed to record lobby %s: %v", code, err)
		}
	}()
}

// RecordScoreEvent persists the event and career totals asynchronously.
func (s *StatsService) RecordScoreEvent(event models.ScoreEvent) {
	if s.db == nil {
		return
	}
	go func() {
		if err := s.db.SaveScoreEvent(event); err != nil {
			logger.Log.Errorf("Failed to record score event for %s in lobby %s: %v",
				event.Player, event.LobbyCode, err)
		}
	}()
}

// GetCareerStats 查询玩家累计战绩
func (s *StatsService) GetCareerStats(player string) (models.CareerStats, error) {
	if s.db == nil {
		return models.CareerStats{}, ErrStatsDisabled
	}
	return s.db.GetCareerStats(player)
}
