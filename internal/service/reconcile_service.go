package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/repository"
)

// reconcileService is the concrete implementation of ReconcileService
type reconcileService struct {
	repos    *repository.Repositories
	interval time.Duration
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	mu       sync.Mutex
}

// newReconcileService creates a new ReconcileService
func newReconcileService(repos *repository.Repositories, interval time.Duration, log zerolog.Logger) *reconcileService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &reconcileService{
		repos:    repos,
		interval: interval,
		log:      log.With().Str("service", "reconcile").Logger(),
	}
}

// Reconcile removes pending requests that were already resolved but not
// deleted, and requests whose article is gone. An article counts as
// resolved when it is public or denied and was updated at or after the
// request time. Returns the number of requests removed.
func (s *reconcileService) Reconcile(ctx context.Context) (int, error) {
	requests, err := s.repos.Request.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list publication requests: %w", err)
	}

	removed := 0
	for _, req := range requests {
		article, err := s.repos.Article.GetByID(ctx, req.ArticleID)
		if err != nil {
			return removed, fmt.Errorf("failed to load article %s: %w", req.ArticleID, err)
		}

		reason := ""
		switch {
		case article == nil:
			reason = "article missing"
		case (article.IsPublic || article.Denied) && !article.UpdatedAt.Before(req.RequestedAt):
			reason = "already resolved"
		default:
			continue
		}

		err = s.repos.Request.Delete(ctx, req.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to delete publication request %s: %w", req.ID, err)
		}
		removed++
		s.log.Info().
			Str("request_id", req.ID).
			Str("article_id", req.ArticleID).
			Str("reason", reason).
			Msg("Stale publication request removed")
	}
	return removed, nil
}

// StartProcessor runs Reconcile on every tick until StopProcessor is called
// or ctx ends. It blocks; run it in its own goroutine.
func (s *reconcileService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer close(done)

	s.log.Info().Dur("interval", s.interval).Msg("Reconcile processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Reconcile processor stopping")
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *reconcileService) runOnce() {
	// Panic recovery keeps one bad pass from killing the processor
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Reconcile pass panicked - recovered")
		}
	}()

	removed, err := s.Reconcile(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Error().Err(err).Msg("Reconcile pass failed")
		}
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Reconcile pass completed")
	}
}

// StopProcessor stops the background processor and waits for it to exit
func (s *reconcileService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.done
	s.running = false
	s.log.Info().Msg("Reconcile processor stopped")
}
