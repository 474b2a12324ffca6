package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
)

// bookmarkService is the concrete implementation of BookmarkService
type bookmarkService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newBookmarkService creates a new BookmarkService
func newBookmarkService(repos *repository.Repositories, log zerolog.Logger) *bookmarkService {
	return &bookmarkService{
		repos: repos,
		log:   log.With().Str("service", "bookmark").Logger(),
	}
}

// Toggle removes the bookmark when present and creates it otherwise,
// reporting whether the article is saved afterwards
func (s *bookmarkService) Toggle(ctx context.Context, userID, articleID string) (bool, error) {
	var saved bool
	err := s.repos.Tx.Run(ctx, func(r *repository.Repositories) error {
		var err error
		saved, err = r.Saved.Toggle(ctx, models.NewSavedArticle(userID, articleID, time.Now()))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle bookmark: %w", err)
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("article_id", articleID).
		Bool("saved", saved).
		Msg("Bookmark toggled")

	return saved, nil
}

// IsSaved reports whether the pair is bookmarked
func (s *bookmarkService) IsSaved(ctx context.Context, userID, articleID string) (bool, error) {
	saved, err := s.repos.Saved.Exists(ctx, models.SavedArticleID(userID, articleID))
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return saved, nil
}

// ListSaved returns the principal's bookmarks with their articles. Bookmarks
// of articles that no longer exist or that the principal may not view are
// skipped.
func (s *bookmarkService) ListSaved(ctx context.Context, p *models.Principal) ([]*models.SavedEntry, error) {
	saved, err := s.repos.Saved.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	entries := make([]*models.SavedEntry, 0, len(saved))
	for _, sa := range saved {
		article, err := s.repos.Article.GetByID(ctx, sa.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load article %s: %w", sa.ArticleID, err)
		}
		if article == nil || !p.CanView(article) {
			continue
		}
		entries = append(entries, &models.SavedEntry{SavedArticle: *sa, Article: article})
	}
	return entries, nil
}

// Watch streams the saved state of the pair. The caller must Close the
// returned handle.
func (s *bookmarkService) Watch(ctx context.Context, userID, articleID string) (*Watch[bool], error) {
	id := models.SavedArticleID(userID, articleID)
	sub, err := s.repos.Watcher.Watch(ctx, models.CollectionSaved, id)
	if err != nil {
		return nil, fmt.Errorf("failed to watch bookmark: %w", err)
	}

	load := func(ctx context.Context) (bool, error) {
		return s.repos.Saved.Exists(ctx, id)
	}
	return startWatch(ctx, sub, load, s.log.With().Str("saved_id", id).Logger()), nil
}
