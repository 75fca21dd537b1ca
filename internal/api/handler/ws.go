package handler

import (
	"complaintbot/backend/internal/feed"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins; access is gated by the operator token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and subscribes it to the complaint feed.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade failed: %v", err)
		return
	}

	client := feed.NewWebSocketClient(uuid.NewString(), conn, h.Hub)
	if !h.Hub.Register(c.Request.Context(), client) {
		log.Printf("WARN: feed is stopped, closing websocket %s", client.ID)
		conn.Close()
		return
	}
	client.Run()
}
