// Package handlers provides HTTP API request handlers.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/emmetthe/interactive-db/internal/ws"
)

// bannerText answers plain HTTP requests on the relay's root path.
const bannerText = "WebSocket server is running"

// WebSocketHandler exposes the relay endpoint.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		wsHandler: wsHandler,
	}
}

// Connect handles GET / and GET /ws. Upgrade requests become relay
// connections; plain requests get a short banner.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusOK, bannerText)
		return
	}

	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// The upgrader has already written the HTTP error response.
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
}

// RegisterRoutes registers the relay routes on a Gin router.
func (h *WebSocketHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Connect)
	r.GET("/ws", h.Connect)
}
