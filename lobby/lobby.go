// lobby/lobby.go
package lobby

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/fireteamhq/lobbyserver/models"
)

var (
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrPlayerNotFound     = errors.New("player not in lobby")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free lobby code")
)

// 大厅码字符集
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Lobby 是一局游戏会话的核心结构：玩家战绩表加火力战队技能等级
type Lobby struct {
	Code      string
	CreatedAt time.Time

	players           map[string]*models.PlayerStats
	fireteamSkillRank int
	emptySince        time.Time
	mutex             sync.RWMutex
}

func newLobby(code string) *Lobby {
	now := time.Now()
	return &Lobby{
		Code:      code,
		CreatedAt: now,
		players:   make(map[string]*models.PlayerStats),
		// 新建的大厅没有成员，从创建起就计入空闲时间
		emptySince: now,
	}
}

// AddPlayer inserts a fresh zeroed stats entry for the name. Joining again
// under the same name resets that player's stats. Returns a snapshot of the
// full player mapping after the insert.
func (l *Lobby) AddPlayer(name string) map[string]models.PlayerStats {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.players[name] = &models.PlayerStats{}
	l.emptySince = time.Time{}
	return l.snapshotLocked()
}

// RemovePlayer deletes the player's stats entry. Removing an unknown name is
// a no-op. The second result reports whether the lobby is now empty.
func (l *Lobby) RemovePlayer(name string) (map[string]models.PlayerStats, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.players, name)
	empty := len(l.players) == 0
	if empty {
		l.emptySince = time.Now()
	}
	return l.snapshotLocked(), empty
}

// UpdateScore applies one score event atomically: the player's score and the
// lobby's fireteam skill rank are both adjusted by points and clamped at zero,
// and the win/loss counters increment on their matching action types. The two
// action type checks are independent, not branches of one switch. An unknown
// player yields ErrPlayerNotFound and no state change.
func (l *Lobby) UpdateScore(player string, points int, actionType string) (map[string]models.PlayerStats, int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	stats, exists := l.players[player]
	if !exists {
		return nil, 0, ErrPlayerNotFound
	}

	stats.Score = max(0, stats.Score+points)
	if actionType == "win" {
		stats.Wins++
	}
	if actionType == "loss" {
		stats.Losses++
	}
	l.fireteamSkillRank = max(0, l.fireteamSkillRank+points)

	return l.snapshotLocked(), l.fireteamSkillRank, nil
}

// Players returns a copy of the player mapping.
func (l *Lobby) Players() map[string]models.PlayerStats {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.snapshotLocked()
}

func (l *Lobby) PlayerCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.players)
}

func (l *Lobby) SkillRank() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.fireteamSkillRank
}

// snapshotLocked copies the player mapping; callers hold l.mutex.
func (l *Lobby) snapshotLocked() map[string]models.PlayerStats {
	players := make(map[string]models.PlayerStats, len(l.players))
	for name, stats := range l.players {
		players[name] = *stats
	}
	return players
}

func (l *Lobby) idleSince() (time.Time, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if len(l.players) > 0 || l.emptySince.IsZero() {
		return time.Time{}, false
	}
	return l.emptySince, true
}

// --- 大厅管理器 ---

// createAttempts bounds collision retries before giving up.
const createAttempts = 5

// Manager owns the lobby-code -> Lobby mapping for the whole process.
type Manager struct {
	lobbies    map[string]*Lobby
	codeLength int
	mutex      sync.RWMutex
}

func NewManager(codeLength int) *Manager {
	if codeLength <= 0 {
		codeLength = 6
	}
	return &Manager{
		lobbies:    make(map[string]*Lobby),
		codeLength: codeLength,
	}
}

// Create allocates a fresh code and registers an empty lobby under it. A code
// that collides with a live lobby is never reused; after createAttempts
// collisions Create fails with ErrCodeSpaceExhausted instead of clobbering
// the existing lobby.
func (m *Manager) Create() (*Lobby, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := 0; i < createAttempts; i++ {
		code := m.generateCode()
		if _, taken := m.lobbies[code]; taken {
			continue
		}
		lobby := newLobby(code)
		m.lobbies[code] = lobby
		return lobby, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (m *Manager) generateCode() string {
	code := make([]byte, m.codeLength)
	for i := range code {
		code[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(code)
}

func (m *Manager) Get(code string) (*Lobby, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	lobby, exists := m.lobbies[code]
	return lobby, exists
}

func (m *Manager) Remove(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.lobbies, code)
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.lobbies)
}

// List returns an overview of every live lobby.
func (m *Manager) List() []models.LobbyInfo {
	m.mutex.RLock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for _, lobby := range m.lobbies {
		lobbies = append(lobbies, lobby)
	}
	m.mutex.RUnlock()

	infos := make([]models.LobbyInfo, 0, len(lobbies))
	for _, lobby := range lobbies {
		infos = append(infos, models.LobbyInfo{
			Code:              lobby.Code,
			PlayerCount:       lobby.PlayerCount(),
			FireteamSkillRank: lobby.SkillRank(),
			CreatedAt:         lobby.CreatedAt,
		})
	}
	return infos
}

// ReapIdle removes every lobby that has had no members for at least ttl and
// returns the reaped codes. Lobbies that a player rejoined since going empty
// are left alone.
func (m *Manager) ReapIdle(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var reaped []string
	for code, lobby := range m.lobbies {
		if since, idle := lobby.idleSince(); idle && since.Before(cutoff) {
			delete(m.lobbies, code)
			reaped = append(reaped, code)
		}
	}
	return reaped
}
