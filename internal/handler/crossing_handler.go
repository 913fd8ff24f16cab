package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// CrossingHandler handles HTTP requests for path crossing status
type CrossingHandler struct {
	service *service.CrossingService
}

// NewCrossingHandler creates a new crossing handler
func NewCrossingHandler(service *service.CrossingService) *CrossingHandler {
	return &CrossingHandler{service: service}
}

// GetStatus handles GET /api/v1/crossings/:userId
func (h *CrossingHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), middleware.UserID(c), c.Param("userId"))
	if err != nil {
		response.FromError(c, "Failed to get crossing status", err)
		return
	}
	response.Success(c, status)
}
