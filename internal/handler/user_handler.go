package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// UserHandler handles HTTP requests for the caller's profile and presence
type UserHandler struct {
	presence *service.PresenceService
	sessions *service.SessionManager
}

// NewUserHandler creates a new user handler
func NewUserHandler(presence *service.PresenceService, sessions *service.SessionManager) *UserHandler {
	return &UserHandler{presence: presence, sessions: sessions}
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.presence.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to get profile", err)
		return
	}
	response.Success(c, user)
}

// UpdateMe handles PUT /api/v1/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req models.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid profile", err)
		return
	}

	user, err := h.presence.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.FromError(c, "Failed to update profile", err)
		return
	}
	response.Success(c, user)
}

// SetGhostMode handles PUT /api/v1/me/ghost-mode
func (h *UserHandler) SetGhostMode(c *gin.Context) {
	var req models.GhostModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid ghost mode request", err)
		return
	}

	if err := h.presence.SetGhostMode(c.Request.Context(), middleware.UserID(c), *req.Enabled); err != nil {
		response.FromError(c, "Failed to set ghost mode", err)
		return
	}
	response.Success(c, gin.H{"ghostMode": *req.Enabled})
}

// SignOut handles POST /api/v1/me/sign-out
func (h *UserHandler) SignOut(c *gin.Context) {
	userID := middleware.UserID(c)
	h.sessions.Stop(userID)

	if err := h.presence.SignOut(c.Request.Context(), userID); err != nil {
		response.FromError(c, "Failed to sign out", err)
		return
	}
	response.Success(c, gin.H{"isActive": false})
}
