package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
)

// AdminHandler handles review and user administration endpoints
type AdminHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services *service.Services, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// ListPending handles GET /v1/admin/publication-requests
func (h *AdminHandler) ListPending(c *gin.Context) {
	pending, err := h.services.Publication.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": pending})
}

// Approve handles POST /v1/admin/publication-requests/:id/approve
func (h *AdminHandler) Approve(c *gin.Context) {
	h.resolve(c, models.ResolutionApprove, h.services.Publication.Approve)
}

// Deny handles POST /v1/admin/publication-requests/:id/deny
func (h *AdminHandler) Deny(c *gin.Context) {
	h.resolve(c, models.ResolutionDeny, h.services.Publication.Deny)
}

func (h *AdminHandler) resolve(c *gin.Context, resolution models.Resolution, apply func(ctx context.Context, requestID string) error) {
	requestID := c.Param("id")
	if err := apply(c.Request.Context(), requestID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": requestID, "resolution": resolution})
}

// ListUsers handles GET /v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.services.Admin.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Ban handles POST /v1/admin/users/:id/ban
func (h *AdminHandler) Ban(c *gin.Context) {
	if err := h.services.Admin.Ban(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStatus handles PUT /v1/admin/users/:id/status
func (h *AdminHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.services.Admin.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
