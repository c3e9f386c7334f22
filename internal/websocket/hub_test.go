package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("expected 3 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c3)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestSendToUserOnlyReachesOwner(t *testing.T) {
	hub := NewHub(slog.Default())

	owner1 := mockClient(hub, 1)
	owner2 := mockClient(hub, 1)
	other := mockClient(hub, 2)
	for _, c := range []*Client{owner1, owner2, other} {
		hub.Register(c)
	}

	hub.SendToUser(1, NewMessage("challenge", "checked_in", "abc", map[string]any{"points_gained": 5}))

	for _, c := range []*Client{owner1, owner2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "challenge_checked_in" {
				t.Errorf("type = %q, want challenge_checked_in", got.Type)
			}
			if got.ID != "abc" {
				t.Errorf("id = %q, want abc", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Error("message delivered to another user")
	default:
	}
}

func TestSendToUserWithoutClients(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.SendToUser(42, NewMessage("notification", "created", "", nil))
}

func TestSendFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.SendToUser(1, NewMessage("test", "fill", "", nil))
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("badge", "earned", "week_streak", nil)
	if msg.Type != "badge_earned" {
		t.Errorf("type = %q, want badge_earned", msg.Type)
	}
	if msg.Entity != "badge" || msg.Action != "earned" || msg.ID != "week_streak" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := mockClient(hub, userID)
			hub.Register(c)
			hub.SendToUser(userID, NewMessage("test", "concurrent", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
