package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// MessageHandler handles HTTP requests for chat messages
type MessageHandler struct {
	service *service.ChatService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *service.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

// ListConversations handles GET /api/v1/messages
func (h *MessageHandler) ListConversations(c *gin.Context) {
	conversations, err := h.service.Conversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to list conversations", err)
		return
	}
	response.Success(c, conversations)
}

// List handles GET /api/v1/messages/:userId
func (h *MessageHandler) List(c *gin.Context) {
	messages, err := h.service.List(c.Request.Context(), middleware.UserID(c), c.Param("userId"))
	if err != nil {
		response.FromError(c, "Failed to list messages", err)
		return
	}
	response.Success(c, messages)
}

// Send handles POST /api/v1/messages/:userId
func (h *MessageHandler) Send(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid message", err)
		return
	}

	m, err := h.service.Send(c.Request.Context(), middleware.UserID(c), c.Param("userId"), req.Text)
	if err != nil {
		response.FromError(c, "Failed to send message", err)
		return
	}
	response.Created(c, m)
}
