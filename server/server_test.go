package server

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/fireteamhq/lobbyserver/config"
	"github.com/fireteamhq/lobbyserver/logger"
	"github.com/fireteamhq/lobbyserver/network"
	"github.com/fireteamhq/lobbyserver/services"
	"github.com/fireteamhq/lobbyserver/session"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

var (
	testServerOnce sync.Once
	testServer     *LobbyServer
	testSessionSeq int
)

// newTestServer returns a shared server instance; the prometheus collectors
// and the RPC service can only register once per process.
func newTestServer() *LobbyServer {
	testServerOnce.Do(func() {
		cfg := &config.Config{}
		cfg.Server.RPCAddress = "127.0.0.1:0"
		cfg.Lobby.CodeLength = 6
		cfg.Lobby.EmptyTTL = time.Hour
		cfg.Lobby.ReapInterval = time.Hour
		cfg.Lobby.SendBufferSize = 16
		testServer = NewLobbyServer(cfg, services.NewStatsService(nil))
	})
	return testServer
}

// MockConnection records every payload it is asked to send.
type MockConnection struct {
	mutex sync.Mutex
	sent  [][]byte
}

func (m *MockConnection) Send(data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func (m *MockConnection) Close() error                        { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}
func (m *MockConnection) ReadMessage() ([]byte, error)        { return nil, nil }

func (m *MockConnection) Sent() [][]byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([][]byte(nil), m.sent...)
}

func (m *MockConnection) Last(t *testing.T) []byte {
	t.Helper()
	sent := m.Sent()
	if len(sent) == 0 {
		t.Fatal("Expected at least one delivered event")
	}
	return sent[len(sent)-1]
}

// connect registers a fresh mock-backed session with the server, the way
// handleConnection would for a real websocket.
func connect(s *LobbyServer) (*session.Session, *MockConnection) {
	conn := &MockConnection{}
	testSessionSeq++
	sess := session.NewSession(fmt.Sprintf("test-session-%d", testSessionSeq), conn)
	s.sessionManager.Add(sess)
	return sess, conn
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Failed to decode event %s: %v", string(data), err)
	}
	return event
}

func TestHandleMessage_CreateLobby(t *testing.T) {
	s := newTestServer()
	sess, conn := connect(s)

	s.handleMessage(sess, []byte(`{"type":"createLobby"}`))

	event := decode[network.LobbyCreatedEvent](t, conn.Last(t))
	if event.Type != network.EventLobbyCreated {
		t.Errorf("Expected lobbyCreated event, got %q", event.Type)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(event.LobbyCode) {
		t.Errorf("Expected a 6 character uppercase alphanumeric code, got %q", event.LobbyCode)
	}

	// Creating a lobby does not join the creator
	if code := sess.LobbyCode(); code != "" {
		t.Errorf("Creator should stay unjoined, got lobby code %q", code)
	}
}

func TestHandleMessage_JoinUnknownLobby(t *testing.T) {
	s := newTestServer()
	sess, conn := connect(s)

	s.handleMessage(sess, []byte(`{"type":"joinLobby","code":"NOPE99","playerName":"Alice"}`))

	event := decode[network.ErrorEvent](t, conn.Last(t))
	if event.Type != network.EventError {
		t.Errorf("Expected error event, got %q", event.Type)
	}
	if event.Message != "Invalid lobby code" {
		t.Errorf("Expected %q, got %q", "Invalid lobby code", event.Message)
	}
	if code := sess.LobbyCode(); code != "" {
		t.Errorf("A failed join should not change membership, got %q", code)
	}
}

func TestHandleMessage_SpinWhileUnjoined(t *testing.T) {
	s := newTestServer()
	sess, conn := connect(s)

	s.handleMessage(sess, []byte(`{"type":"spin","spinData":"x"}`))

	if len(conn.Sent()) != 0 {
		t.Errorf("A spin from an unjoined connection should reach no one, got %d sends", len(conn.Sent()))
	}
}

func TestHandleMessage_MalformedAndUnknownIgnored(t *testing.T) {
	s := newTestServer()
	sess, conn := connect(s)

	s.handleMessage(sess, []byte(`not json`))
	s.handleMessage(sess, []byte(`{"type":"teleport"}`))

	if len(conn.Sent()) != 0 {
		t.Errorf("Malformed and unknown messages should be dropped silently, got %d sends", len(conn.Sent()))
	}
}

func TestHandleMessage_UpdateScoreUnknownPlayer(t *testing.T) {
	s := newTestServer()
	sess, conn := connect(s)

	s.handleMessage(sess, []byte(`{"type":"createLobby"}`))
	created := decode[network.LobbyCreatedEvent](t, conn.Last(t))
	s.handleMessage(sess, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Alice"}`, created.LobbyCode)))
	before := len(conn.Sent())

	s.handleMessage(sess, []byte(`{"type":"updateScore","player":"Ghost","points":10,"actionType":"win"}`))

	if len(conn.Sent()) != before {
		t.Errorf("Scoring an unknown player should be a no-op, got %d extra sends", len(conn.Sent())-before)
	}
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestServer()

	sessA, connA := connect(s)
	sessB, connB := connect(s)

	// A creates a lobby
	s.handleMessage(sessA, []byte(`{"type":"createLobby"}`))
	created := decode[network.LobbyCreatedEvent](t, connA.Last(t))
	code := created.LobbyCode

	// A joins as Alice
	s.handleMessage(sessA, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Alice"}`, code)))
	joined := decode[network.PlayerJoinedEvent](t, connA.Last(t))
	if joined.Type != network.EventPlayerJoined || joined.PlayerName != "Alice" {
		t.Fatalf("Expected Alice's playerJoined, got %+v", joined)
	}
	if len(joined.Players) != 1 {
		t.Fatalf("Expected 1 player after Alice joins, got %d", len(joined.Players))
	}
	if stats := joined.Players["Alice"]; stats.Score != 0 || stats.Wins != 0 || stats.Losses != 0 {
		t.Errorf("Alice should start zeroed, got %+v", stats)
	}

	// B joins as Bob; both receive the event with both players listed
	s.handleMessage(sessB, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Bob"}`, code)))
	for name, conn := range map[string]*MockConnection{"A": connA, "B": connB} {
		joined := decode[network.PlayerJoinedEvent](t, conn.Last(t))
		if joined.PlayerName != "Bob" {
			t.Errorf("%s: expected Bob's playerJoined, got %q", name, joined.PlayerName)
		}
		if len(joined.Players) != 2 {
			t.Errorf("%s: expected both players listed, got %d", name, len(joined.Players))
		}
	}

	// A scores for Alice; both receive the updated mapping and rank
	s.handleMessage(sessA, []byte(`{"type":"updateScore","player":"Alice","points":20,"actionType":"win"}`))
	for name, conn := range map[string]*MockConnection{"A": connA, "B": connB} {
		updated := decode[network.ScoreUpdatedEvent](t, conn.Last(t))
		if updated.Type != network.EventScoreUpdated {
			t.Fatalf("%s: expected scoreUpdated, got %q", name, updated.Type)
		}
		alice := updated.Players["Alice"]
		if alice.Score != 20 || alice.Wins != 1 || alice.Losses != 0 {
			t.Errorf("%s: expected Alice score 20, 1 win, got %+v", name, alice)
		}
		if updated.FireteamSkillRank != 20 {
			t.Errorf("%s: expected fireteam skill rank 20, got %d", name, updated.FireteamSkillRank)
		}
	}

	// B spins; the payload is relayed verbatim to both
	s.handleMessage(sessB, []byte(`{"type":"spin","spinData":{"reels":[1,2,3]}}`))
	for name, conn := range map[string]*MockConnection{"A": connA, "B": connB} {
		spin := decode[network.SpinResultEvent](t, conn.Last(t))
		if spin.Type != network.EventSpinResult {
			t.Fatalf("%s: expected spinResult, got %q", name, spin.Type)
		}
		if string(spin.SpinData) != `{"reels":[1,2,3]}` {
			t.Errorf("%s: spinData should pass through verbatim, got %s", name, string(spin.SpinData))
		}
	}

	// B disconnects; A receives playerLeft without Bob, B receives nothing more
	bSendsBefore := len(connB.Sent())
	s.handleDisconnect(sessB)

	left := decode[network.PlayerLeftEvent](t, connA.Last(t))
	if left.Type != network.EventPlayerLeft || left.PlayerName != "Bob" {
		t.Fatalf("Expected Bob's playerLeft, got %+v", left)
	}
	if _, exists := left.Players["Bob"]; exists {
		t.Error("Departed player should be gone from the mapping")
	}
	if _, exists := left.Players["Alice"]; !exists {
		t.Error("Remaining player should still be in the mapping")
	}
	if len(connB.Sent()) != bSendsBefore {
		t.Errorf("A disconnected session should receive nothing, got %d extra sends", len(connB.Sent())-bSendsBefore)
	}
}

func TestBroadcastScoping(t *testing.T) {
	s := newTestServer()

	sessA, connA := connect(s)
	sessB, connB := connect(s)

	s.handleMessage(sessA, []byte(`{"type":"createLobby"}`))
	codeA := decode[network.LobbyCreatedEvent](t, connA.Last(t)).LobbyCode
	s.handleMessage(sessB, []byte(`{"type":"createLobby"}`))
	codeB := decode[network.LobbyCreatedEvent](t, connB.Last(t)).LobbyCode

	s.handleMessage(sessA, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Alice"}`, codeA)))
	s.handleMessage(sessB, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Bob"}`, codeB)))
	bSendsBefore := len(connB.Sent())

	s.handleMessage(sessA, []byte(`{"type":"spin","spinData":"x"}`))

	if len(connB.Sent()) != bSendsBefore {
		t.Errorf("A session in another lobby must never receive the event, got %d extra sends",
			len(connB.Sent())-bSendsBefore)
	}
}

func TestSwitchingLobbiesLeavesTheOld(t *testing.T) {
	s := newTestServer()

	sessA, connA := connect(s)
	sessB, connB := connect(s)

	s.handleMessage(sessA, []byte(`{"type":"createLobby"}`))
	codeA := decode[network.LobbyCreatedEvent](t, connA.Last(t)).LobbyCode
	s.handleMessage(sessA, []byte(`{"type":"createLobby"}`))
	codeB := decode[network.LobbyCreatedEvent](t, connA.Last(t)).LobbyCode

	s.handleMessage(sessA, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Alice"}`, codeA)))
	s.handleMessage(sessB, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Bob"}`, codeA)))

	s.handleMessage(sessA, []byte(fmt.Sprintf(`{"type":"joinLobby","code":%q,"playerName":"Alice"}`, codeB)))

	// B sees Alice leave the old lobby
	left := decode[network.PlayerLeftEvent](t, connB.Last(t))
	if left.Type != network.EventPlayerLeft || left.PlayerName != "Alice" {
		t.Fatalf("Expected Alice's playerLeft in the old lobby, got %+v", left)
	}

	// Alice is now a member of the new lobby only
	if code := sessA.LobbyCode(); code != codeB {
		t.Errorf("Expected Alice in lobby %s, got %q", codeB, code)
	}
	target, _ := s.lobbyManager.Get(codeA)
	if _, exists := target.Players()["Alice"]; exists {
		t.Error("Alice should be gone from the old lobby's mapping")
	}
}
