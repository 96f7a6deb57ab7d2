// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/fireteamhq/lobbyserver/models"
)

// Database 数据库接口：大厅与记分事件的追加记录，外加玩家累计战绩。
// 大厅的在线状态永远不从这里恢复。
type Database interface {
	SaveLobbyRecord(code string) error
	SaveScoreEvent(event models.ScoreEvent) error
	GetCareerStats(player string) (models.CareerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
