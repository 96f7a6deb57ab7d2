// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/fireteamhq/lobbyserver/network"
)

// Session is the per-connection record the server owns: identity plus the
// lobby membership tags. Membership lives here, not on the transport handle.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	lobbyCode  string
	playerName string
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Join tags the session with its lobby membership.
func (s *Session) Join(lobbyCode, playerName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lobbyCode = lobbyCode
	s.playerName = playerName
}

// Leave clears the membership tags, returning the session to unjoined.
func (s *Session) Leave() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lobbyCode = ""
	s.playerName = ""
}

// Membership returns the lobby code and player name, both empty while unjoined.
func (s *Session) Membership() (lobbyCode, playerName string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lobbyCode, s.playerName
}

func (s *Session) LobbyCode() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lobbyCode
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActive = time.Now()
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器：所有在线连接的注册表
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove is idempotent; removing an unknown ID is a no-op.
func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// ForLobby returns a snapshot of every session currently tagged with the
// given lobby code. Callers iterate the snapshot, so membership changes
// mid-broadcast cannot invalidate the iteration.
func (m *Manager) ForLobby(lobbyCode string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.LobbyCode() == lobbyCode {
			result = append(result, session)
		}
	}
	return result
}
