package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crop-advisor-service/metrics"
)

// SnapshotMessage is what renderers receive: the event kind plus the current
// full prediction snapshot (or an error message for failed runs). UserID is
// the owning identity: the authenticated user id, or the session id an
// anonymous caller registered with.
type SnapshotMessage struct {
	Event      string `json:"event"` // "snapshot", "done" or "error"
	UserID     string `json:"-"`
	Prediction any    `json:"prediction,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WebSocketHub manages WebSocket connections and routes prediction snapshots
// to the connections of the user who triggered the run.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	send       chan SnapshotMessage
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	mutex      sync.RWMutex
}

// WebSocketClient represents a WebSocket client connection
type WebSocketClient struct {
	hub    *WebSocketHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		send:       make(chan SnapshotMessage, 64),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
	}
}

// Start starts the WebSocket hub
func (h *WebSocketHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			metrics.WSClients.Set(float64(len(h.clients)))
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client registered for user %s", client.userID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			metrics.WSClients.Set(float64(len(h.clients)))
			h.mutex.Unlock()
			log.Printf("INFO: WebSocket client unregistered for user %s", client.userID)

		case message := <-h.send:
			// A snapshot with no owner identity has no legitimate
			// listener; it must never reach other users' renderers.
			if message.UserID == "" {
				continue
			}
			data := h.serializeMessage(message)
			h.mutex.Lock()
			for client := range h.clients {
				if client.userID != message.UserID {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			metrics.WSClients.Set(float64(len(h.clients)))
			h.mutex.Unlock()
		}
	}
}

// Stop stops the WebSocket hub
func (h *WebSocketHub) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// RegisterClient registers a new WebSocket client
func (h *WebSocketHub) RegisterClient(conn *websocket.Conn, userID string) {
	client := &WebSocketClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	h.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// SendSnapshot routes a snapshot message to the connections registered with
// the owning identity. Messages without an owner are dropped, never
// broadcast.
func (h *WebSocketHub) SendSnapshot(message SnapshotMessage) {
	if message.UserID == "" {
		return
	}
	select {
	case h.send <- message:
	default:
		log.Printf("WARN: WebSocket hub send buffer full, dropping %s event", message.Event)
	}
}

// GetConnectedClientsCount returns the number of connected clients
func (h *WebSocketHub) GetConnectedClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// serializeMessage serializes a snapshot message to JSON
func (h *WebSocketHub) serializeMessage(message SnapshotMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: Failed to serialize message: %v", err)
		return []byte("{}")
	}
	return data
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: WebSocket read error for user %s: %v", c.userID, err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
