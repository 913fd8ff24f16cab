package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nearu/nearu-backend/internal/middleware"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/service"
	"github.com/nearu/nearu-backend/pkg/response"
)

// MatchRequestHandler handles HTTP requests for match requests
type MatchRequestHandler struct {
	service *service.MatchRequestService
}

// NewMatchRequestHandler creates a new match request handler
func NewMatchRequestHandler(service *service.MatchRequestService) *MatchRequestHandler {
	return &MatchRequestHandler{service: service}
}

// Create handles POST /api/v1/match-requests
func (h *MatchRequestHandler) Create(c *gin.Context) {
	var req models.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid match request", err)
		return
	}

	m, err := h.service.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.FromError(c, "Failed to create match request", err)
		return
	}
	response.Created(c, m)
}

// ListPending handles GET /api/v1/match-requests
func (h *MatchRequestHandler) ListPending(c *gin.Context) {
	requests, err := h.service.ListPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, "Failed to list match requests", err)
		return
	}
	response.Success(c, requests)
}

// Accept handles POST /api/v1/match-requests/:id/accept
func (h *MatchRequestHandler) Accept(c *gin.Context) {
	m, err := h.service.Accept(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to accept match request", err)
		return
	}
	response.Success(c, m)
}

// Reject handles POST /api/v1/match-requests/:id/reject
func (h *MatchRequestHandler) Reject(c *gin.Context) {
	m, err := h.service.Reject(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to reject match request", err)
		return
	}
	response.Success(c, m)
}
