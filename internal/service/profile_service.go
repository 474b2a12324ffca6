package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// profileService is the concrete implementation of ProfileService
type profileService struct {
	repos     *repository.Repositories
	uploader  blob.Uploader
	validator *validation.Validator
	log       zerolog.Logger
}

// newProfileService creates a new ProfileService
func newProfileService(repos *repository.Repositories, uploader blob.Uploader, validator *validation.Validator, log zerolog.Logger) *profileService {
	return &profileService{
		repos:     repos,
		uploader:  uploader,
		validator: validator,
		log:       log.With().Str("service", "profile").Logger(),
	}
}

// Get returns a profile
func (s *profileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// Update overwrites the self-editable fields. The write replaces the whole
// record, so everything else, created_at included, is re-supplied from the
// stored profile.
func (s *profileService) Update(ctx context.Context, userID string, upd *models.ProfileUpdate) (*models.UserProfile, error) {
	s.validator.NormalizeProfile(upd)
	if err := s.validator.ValidateProfile(upd).Err(); err != nil {
		return nil, err
	}

	return s.rewrite(ctx, userID, func(p *models.UserProfile) {
		p.DisplayName = upd.DisplayName
		p.Username = upd.Username
	})
}

// UpdateAvatar uploads an image and stores its URL on the profile. When the
// profile write fails the uploaded blob is deleted if the uploader can.
func (s *profileService) UpdateAvatar(ctx context.Context, userID, name, contentType string, r io.Reader) (*models.UserProfile, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	url, err := s.uploader.Upload(ctx, name, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	profile, err := s.rewrite(ctx, userID, func(p *models.UserProfile) {
		p.AvatarURL = url
	})
	if err != nil {
		s.discard(url, userID)
		return nil, err
	}

	s.log.Info().Str("user_id", userID).Str("avatar_url", url).Msg("Avatar updated")
	return profile, nil
}

// rewrite applies edit to the stored profile and writes the whole record
// back. The row stays locked between the read and the write, so a concurrent
// ban or status change is never overwritten with stale values.
func (s *profileService) rewrite(ctx context.Context, userID string, edit func(p *models.UserProfile)) (*models.UserProfile, error) {
	var next *models.UserProfile
	err := s.repos.Tx.Run(ctx, func(r *repository.Repositories) error {
		current, err := r.User.GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if current == nil {
			return ErrNotFound
		}

		updated := *current
		edit(&updated)
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = time.Now()

		if err := r.User.Put(ctx, &updated); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		next = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *profileService) discard(url, userID string) {
	deleter, ok := s.uploader.(blob.Deleter)
	if !ok {
		s.log.Warn().Str("user_id", userID).Str("avatar_url", url).Msg("Profile write failed, uploaded avatar orphaned")
		return
	}

	// the request context may already be gone
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := deleter.Delete(ctx, url); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("avatar_url", url).Msg("Failed to delete orphaned avatar")
	}
}

// Watch streams the profile; nil is delivered while it does not exist. The
// caller must Close the returned handle.
func (s *profileService) Watch(ctx context.Context, userID string) (*Watch[*models.UserProfile], error) {
	sub, err := s.repos.Watcher.Watch(ctx, models.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to watch profile: %w", err)
	}

	load := func(ctx context.Context) (*models.UserProfile, error) {
		p, err := s.Get(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return p, err
	}
	return startWatch(ctx, sub, load, s.log.With().Str("user_id", userID).Logger()), nil
}
