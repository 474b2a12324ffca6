package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
)

// ProfileHandler handles the caller's own profile
type ProfileHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "profile").Logger(),
	}
}

// Get handles GET /v1/me/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.services.Profile.Get(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Update handles PUT /v1/me/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var upd models.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.services.Profile.Update(c.Request.Context(), principal(c).UserID, &upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateAvatar handles POST /v1/me/profile/avatar (multipart "file")
func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	upload, ok := readImageUpload(c, h.cfg.Blob.MaxUploadSize)
	if !ok {
		return
	}
	defer upload.file.Close()

	profile, err := h.services.Profile.UpdateAvatar(c.Request.Context(), principal(c).UserID, upload.name, upload.contentType, upload.file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Events handles GET /v1/me/profile/events. It streams the caller's profile
// and every later change as server-sent events.
func (h *ProfileHandler) Events(c *gin.Context) {
	userID := principal(c).UserID
	watch, err := h.services.Profile.Watch(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer watch.Close()

	streamWatch(c, watch, "profile", func(p *models.UserProfile) interface{} {
		return gin.H{"profile": p}
	})
}
