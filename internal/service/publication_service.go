package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// publicationService is the concrete implementation of PublicationService
type publicationService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newPublicationService creates a new PublicationService
func newPublicationService(repos *repository.Repositories, log zerolog.Logger) *publicationService {
	return &publicationService{
		repos: repos,
		log:   log.With().Str("service", "publication").Logger(),
	}
}

// RequestPublication queues an article for admin review. Ownership, article
// existence and privacy are not checked here. An article has at most one
// pending request; asking again returns the existing one with created=false.
func (s *publicationService) RequestPublication(ctx context.Context, p *models.Principal, articleID string) (*models.PublicationRequest, bool, error) {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return nil, false, validation.Errors{{Field: "article_id", Message: "article_id is required"}}
	}

	req := &models.PublicationRequest{
		ID:          uuid.New().String(),
		ArticleID:   articleID,
		Status:      models.RequestStatusPending,
		RequestedAt: time.Now(),
	}

	stored, created, err := s.repos.Request.CreateIfAbsent(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create publication request: %w", err)
	}

	s.log.Info().
		Str("request_id", stored.ID).
		Str("article_id", articleID).
		Str("user_id", p.UserID).
		Bool("created", created).
		Msg("Publication requested")

	return stored, created, nil
}

// ListPending returns pending requests joined with their articles. Requests
// whose article no longer exists are left out.
func (s *publicationService) ListPending(ctx context.Context) ([]*models.PendingRequest, error) {
	requests, err := s.repos.Request.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list publication requests: %w", err)
	}

	pending := make([]*models.PendingRequest, 0, len(requests))
	for _, req := range requests {
		article, err := s.repos.Article.GetByID(ctx, req.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load article %s: %w", req.ArticleID, err)
		}
		if article == nil {
			continue
		}
		pending = append(pending, &models.PendingRequest{PublicationRequest: *req, Article: article})
	}
	return pending, nil
}

// Approve makes the requested article public and removes the request
func (s *publicationService) Approve(ctx context.Context, requestID string) error {
	return s.resolve(ctx, requestID, models.ResolutionApprove)
}

// Deny flags the requested article as denied and removes the request
func (s *publicationService) Deny(ctx context.Context, requestID string) error {
	return s.resolve(ctx, requestID, models.ResolutionDeny)
}

// resolve applies a decision atomically: the article flag and the request
// deletion commit together or not at all. A request already resolved by
// someone else yields ErrNotFound and leaves the article untouched.
func (s *publicationService) resolve(ctx context.Context, requestID string, resolution models.Resolution) error {
	var articleID string

	err := s.repos.Tx.Run(ctx, func(r *repository.Repositories) error {
		req, err := r.Request.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return repository.ErrNotFound
		}
		articleID = req.ArticleID

		switch resolution {
		case models.ResolutionApprove:
			err = r.Article.SetPublic(ctx, req.ArticleID)
		case models.ResolutionDeny:
			err = r.Article.SetDenied(ctx, req.ArticleID)
		default:
			err = fmt.Errorf("unknown resolution: %s", resolution)
		}
		if err != nil {
			return err
		}

		return r.Request.Delete(ctx, req.ID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to %s publication request: %w", resolution, err)
	}

	s.log.Info().
		Str("request_id", requestID).
		Str("article_id", articleID).
		Str("resolution", string(resolution)).
		Msg("Publication request resolved")

	return nil
}
