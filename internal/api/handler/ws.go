package handler

import (
	"net/http"

	"matchago/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the web client's domain is fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers the client with
// the hub. The token travels in the query string because browsers cannot
// set headers on websocket upgrades.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := bearer(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}
	anonID, _, err := h.validateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	limit := chathub.NewRateLimiter(h.Cfg.WS.MsgsPerSecond, h.Cfg.WS.Burst)
	client := chathub.NewWebSocketClient(anonID, h.Hub, conn, limit, h.Log)

	h.Hub.RegisterCh <- client
	client.Run()
}
