package handlers

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"crop-advisor-service/middleware"
	"crop-advisor-service/services"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub *services.WebSocketHub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// ListenPredictions upgrades the connection and registers it under the
// caller's identity: the authenticated user id, or a caller-generated
// session_id query parameter for anonymous use. Each diagnosis submitted
// with the same identity is then streamed to this connection as snapshot
// events followed by a done or error event.
func (h *WebSocketHandler) ListenPredictions(c *gin.Context) {
	identity := middleware.GetUserIDFromContext(c)
	if identity == "" {
		identity = c.Query("session_id")
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for now
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	h.hub.RegisterClient(conn, identity)
}

// Stats handles WebSocket stats requests
func (h *WebSocketHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.hub.GetConnectedClientsCount(),
	})
}
