package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/service"
)

// BookmarkHandler handles saved-article endpoints
type BookmarkHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewBookmarkHandler creates a new BookmarkHandler
func NewBookmarkHandler(services *service.Services, log zerolog.Logger) *BookmarkHandler {
	return &BookmarkHandler{
		services: services,
		log:      log.With().Str("handler", "bookmark").Logger(),
	}
}

// IsSaved handles GET /v1/articles/:id/bookmark
func (h *BookmarkHandler) IsSaved(c *gin.Context) {
	articleID := c.Param("id")
	saved, err := h.services.Bookmarks.IsSaved(c.Request.Context(), principal(c).UserID, articleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": articleID, "saved": saved})
}

// Toggle handles POST /v1/articles/:id/bookmark
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	articleID := c.Param("id")
	saved, err := h.services.Bookmarks.Toggle(c.Request.Context(), principal(c).UserID, articleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": articleID, "saved": saved})
}

// ListSaved handles GET /v1/me/saved
func (h *BookmarkHandler) ListSaved(c *gin.Context) {
	entries, err := h.services.Bookmarks.ListSaved(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": entries})
}

// Events handles GET /v1/articles/:id/bookmark/events. It streams the
// current saved state and every later change as server-sent events.
func (h *BookmarkHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	userID := principal(c).UserID
	articleID := c.Param("id")

	watch, err := h.services.Bookmarks.Watch(ctx, userID, articleID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer watch.Close()

	h.log.Debug().Str("user_id", userID).Str("article_id", articleID).Msg("Bookmark stream opened")
	streamWatch(c, watch, "bookmark", func(saved bool) interface{} {
		return gin.H{"article_id": articleID, "saved": saved}
	})
	h.log.Debug().Str("user_id", userID).Str("article_id", articleID).Msg("Bookmark stream closed")
}
