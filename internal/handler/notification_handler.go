package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// NotificationHandler handles notifications and device tokens
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListUnread handles GET /api/v1/notifications
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	list, err := h.service.ListUnread(ctx, userID)
	if err != nil {
		response.FromError(c, "Failed to list notifications", err)
		return
	}
	unreadMessages, err := h.service.UnreadCount(ctx, userID, models.NotificationMessage)
	if err != nil {
		response.FromError(c, "Failed to count notifications", err)
		return
	}

	response.Success(c, gin.H{
		"data":           list,
		"total":          len(list),
		"unreadMessages": unreadMessages,
	})
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.FromError(c, "Failed to mark notification read", err)
		return
	}
	response.Success(c, gin.H{"read": true})
}

// RegisterToken handles PUT /api/v1/devices/token
func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req models.DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid device token", err)
		return
	}

	if err := h.service.RegisterToken(c.Request.Context(), middleware.UserID(c), req.Token); err != nil {
		response.FromError(c, "Failed to register device token", err)
		return
	}
	response.Success(c, gin.H{"registered": true})
}
