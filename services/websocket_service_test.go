package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestClient(t *testing.T, hub *WebSocketHub, identity string) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade test connection: %v", err)
			return
		}
		hub.RegisterClient(conn, identity)
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("failed to dial test server: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHubRoutesSnapshotsToOwnerOnly(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Start()
	defer hub.Stop()

	connA, cleanupA := dialTestClient(t, hub, "user-a")
	defer cleanupA()
	connB, cleanupB := dialTestClient(t, hub, "user-b")
	defer cleanupB()

	// Let the hub process both registrations before sending.
	time.Sleep(100 * time.Millisecond)

	hub.SendSnapshot(SnapshotMessage{
		Event:      "snapshot",
		UserID:     "user-a",
		Prediction: map[string]string{"crop_type": "Tomato"},
	})

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := connA.ReadMessage()
	if err != nil {
		t.Fatalf("owner did not receive its snapshot: %v", err)
	}
	if !strings.Contains(string(data), "Tomato") {
		t.Errorf("owner received unexpected message: %s", data)
	}

	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := connB.ReadMessage(); err == nil {
		t.Errorf("user-b received another user's snapshot: %s", data)
	}
}

func TestHubDropsOwnerlessSnapshots(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Start()
	defer hub.Stop()

	conn, cleanup := dialTestClient(t, hub, "user-b")
	defer cleanup()

	time.Sleep(100 * time.Millisecond)

	// A message with no owner identity must be dropped, not broadcast.
	hub.SendSnapshot(SnapshotMessage{
		Event:      "snapshot",
		UserID:     "",
		Prediction: map[string]string{"crop_type": "Tomato"},
	})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("received a snapshot that belongs to nobody: %s", data)
	}
}
