package session

import (
	"net"
	"testing"
	"time"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(data []byte) error              { return nil }
func (m *MockConnection) Close() error                        { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}
func (m *MockConnection) ReadMessage() ([]byte, error)        { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}

	// Removing again is a no-op
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatal("Removing an unknown session should be idempotent")
	}
}

func TestSession_Membership(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})

	code, name := sess.Membership()
	if code != "" || name != "" {
		t.Errorf("A fresh session should be unjoined, got code %q name %q", code, name)
	}

	sess.Join("ABC123", "Alice")
	code, name = sess.Membership()
	if code != "ABC123" || name != "Alice" {
		t.Errorf("Expected membership ABC123/Alice, got %q/%q", code, name)
	}

	sess.Leave()
	code, name = sess.Membership()
	if code != "" || name != "" {
		t.Errorf("Leave should clear membership, got code %q name %q", code, name)
	}
}

func TestManager_ForLobby(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Join("AAA111", "Alice")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.Join("BBB222", "Bob")

	sess3 := NewSession("session3", &MockConnection{})
	sess3.Join("AAA111", "Carol")

	sess4 := NewSession("session4", &MockConnection{})

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)
	manager.Add(sess4)

	aaa := manager.ForLobby("AAA111")
	if len(aaa) != 2 {
		t.Errorf("Expected 2 sessions in lobby AAA111, got %d", len(aaa))
	}

	bbb := manager.ForLobby("BBB222")
	if len(bbb) != 1 {
		t.Errorf("Expected 1 session in lobby BBB222, got %d", len(bbb))
	}

	none := manager.ForLobby("CCC333")
	if len(none) != 0 {
		t.Errorf("Expected 0 sessions in lobby CCC333, got %d", len(none))
	}
}
