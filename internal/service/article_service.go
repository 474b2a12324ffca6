package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repos     *repository.Repositories
	uploader  blob.Uploader
	validator *validation.Validator
	log       zerolog.Logger
}

// newArticleService creates a new ArticleService
func newArticleService(repos *repository.Repositories, uploader blob.Uploader, validator *validation.Validator, log zerolog.Logger) *articleService {
	return &articleService{
		repos:     repos,
		uploader:  uploader,
		validator: validator,
		log:       log.With().Str("service", "article").Logger(),
	}
}

// Create adds an article owned by p. Only admins may create public
// articles; everyone else starts private and goes through review.
func (s *articleService) Create(ctx context.Context, p *models.Principal, in *models.ArticleInput) (*models.Article, error) {
	s.validator.NormalizeArticle(in)
	if err := s.validator.ValidateArticle(in).Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	article := &models.Article{
		ID:             uuid.New().String(),
		Title:          in.Title,
		Description:    in.Description,
		OriginalAuthor: in.OriginalAuthor,
		Image:          in.Image,
		Tags:           in.Tags,
		Categories:     in.Categories,
		URL:            in.URL,
		IsPublic:       p.IsAdmin() && in.IsPublic,
		CreatedBy:      p.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repos.Article.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	s.log.Info().
		Str("article_id", article.ID).
		Str("user_id", p.UserID).
		Bool("is_public", article.IsPublic).
		Msg("Article created")

	return article, nil
}

// UploadImage stores a cover image and returns its public URL
func (s *articleService) UploadImage(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	url, err := s.uploader.Upload(ctx, name, contentType, r)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

// Get returns an article. Private articles are visible to their owner and
// to admins only; to everyone else they do not exist.
func (s *articleService) Get(ctx context.Context, p *models.Principal, id string) (*models.Article, error) {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}
	if article == nil {
		return nil, ErrNotFound
	}
	if !p.CanView(article) {
		return nil, ErrNotFound
	}
	return article, nil
}

// ListPublic returns public articles, optionally narrowed by a search term
func (s *articleService) ListPublic(ctx context.Context, search string) ([]*models.Article, error) {
	articles, err := s.repos.Article.List(ctx, models.ArticleFilter{PublicOnly: true, Search: search})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// ListMine returns the caller's own articles, flagging those awaiting review
func (s *articleService) ListMine(ctx context.Context, userID string) ([]*models.OwnedArticle, error) {
	articles, err := s.repos.Article.List(ctx, models.ArticleFilter{CreatedBy: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	pending, err := s.repos.Request.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list publication requests: %w", err)
	}
	waiting := make(map[string]bool, len(pending))
	for _, req := range pending {
		waiting[req.ArticleID] = true
	}

	owned := make([]*models.OwnedArticle, 0, len(articles))
	for _, a := range articles {
		owned = append(owned, &models.OwnedArticle{Article: *a, PendingReview: waiting[a.ID]})
	}
	return owned, nil
}
