package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// adminService is the concrete implementation of AdminService
type adminService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

// newAdminService creates a new AdminService
func newAdminService(repos *repository.Repositories, validator *validation.Validator, log zerolog.Logger) *adminService {
	return &adminService{
		repos:     repos,
		validator: validator,
		log:       log.With().Str("service", "admin").Logger(),
	}
}

// ListUsers returns every profile
func (s *adminService) ListUsers(ctx context.Context) ([]*models.UserProfile, error) {
	users, err := s.repos.User.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*models.UserProfile{}
	}
	return users, nil
}

// Ban flags a user as banned. There is no unban.
func (s *adminService) Ban(ctx context.Context, userID string) error {
	err := s.repos.User.SetBanned(ctx, userID, true)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	s.log.Warn().Str("user_id", userID).Msg("User banned")
	return nil
}

// SetStatus changes a user's role
func (s *adminService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	if err := s.validator.ValidateStatus(status).Err(); err != nil {
		return err
	}
	err := s.repos.User.SetStatus(ctx, userID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("status", string(status)).Msg("User status changed")
	return nil
}
