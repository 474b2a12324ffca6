package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
)

// ArticleHandler handles article and submission endpoints
type ArticleHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// ListPublic handles GET /v1/articles?q=...
func (h *ArticleHandler) ListPublic(c *gin.Context) {
	articles, err := h.services.Articles.ListPublic(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Create handles POST /v1/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	article, err := h.services.Articles.Create(c.Request.Context(), principal(c), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// UploadImage handles POST /v1/articles/images (multipart "file")
func (h *ArticleHandler) UploadImage(c *gin.Context) {
	upload, ok := readImageUpload(c, h.cfg.Blob.MaxUploadSize)
	if !ok {
		return
	}
	defer upload.file.Close()

	url, err := h.services.Articles.UploadImage(c.Request.Context(), upload.name, upload.contentType, upload.file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// Get handles GET /v1/articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.services.Articles.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// ListMine handles GET /v1/me/articles
func (h *ArticleHandler) ListMine(c *gin.Context) {
	articles, err := h.services.Articles.ListMine(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// RequestPublication handles POST /v1/articles/:id/publication-requests.
// Responds 201 for a new request and 200 when one is already pending.
func (h *ArticleHandler) RequestPublication(c *gin.Context) {
	req, created, err := h.services.Publication.RequestPublication(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"request": req, "created": created})
}
