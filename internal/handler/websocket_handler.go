package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/websocket"
)

// WebsocketHandler upgrades connections for live nearby updates
type WebsocketHandler struct {
	hub *websocket.Hub
}

// NewWebsocketHandler creates a new websocket handler
func NewWebsocketHandler(hub *websocket.Hub) *WebsocketHandler {
	return &WebsocketHandler{hub: hub}
}

// Serve handles GET /api/v1/ws
func (h *WebsocketHandler) Serve(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		// the upgrader has already written the error response
		logging.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
	}
}
