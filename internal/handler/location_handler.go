package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// LocationHandler handles location samples, check-ins and nearby discovery
type LocationHandler struct {
	presence *service.PresenceService
	sessions *service.SessionManager
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(presence *service.PresenceService, sessions *service.SessionManager) *LocationHandler {
	return &LocationHandler{presence: presence, sessions: sessions}
}

// SubmitSample handles POST /api/v1/location/samples
func (h *LocationHandler) SubmitSample(c *gin.Context) {
	var req models.LocationSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid location sample", err)
		return
	}

	result, err := h.sessions.Submit(c.Request.Context(), middleware.UserID(c), req.ToLocation())
	if err != nil {
		response.FromError(c, "Failed to process location sample", err)
		return
	}
	response.Success(c, result)
}

// Checkin handles POST /api/v1/location/checkin
func (h *LocationHandler) Checkin(c *gin.Context) {
	var req models.LocationSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid location", err)
		return
	}

	result, err := h.presence.Checkin(c.Request.Context(), middleware.UserID(c), req.ToLocation())
	if err != nil {
		response.FromError(c, "Failed to check in", err)
		return
	}
	response.Success(c, result)
}

// Nearby handles GET /api/v1/nearby
func (h *LocationHandler) Nearby(c *gin.Context) {
	nearby, err := h.presence.Nearby(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to get nearby users", err)
		return
	}
	response.Success(c, gin.H{
		"data":  nearby,
		"total": len(nearby),
	})
}
