package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/auth"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// authService is the concrete implementation of AuthService
type authService struct {
	repos     *repository.Repositories
	hasher    *auth.Hasher
	tokens    *auth.TokenIssuer
	validator *validation.Validator
	log       zerolog.Logger
}

// newAuthService creates a new AuthService
func newAuthService(repos *repository.Repositories, hasher *auth.Hasher, tokens *auth.TokenIssuer, validator *validation.Validator, log zerolog.Logger) *authService {
	return &authService{
		repos:     repos,
		hasher:    hasher,
		tokens:    tokens,
		validator: validator,
		log:       log.With().Str("service", "auth").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a credential and creates the matching profile
func (s *authService) SignUp(ctx context.Context, email, password, displayName string) (*models.AuthResult, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if err := s.validator.ValidateSignUp(email, password, displayName).Err(); err != nil {
		return nil, err
	}

	exists, err := s.repos.Credential.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &models.UserProfile{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		Status:      models.UserStatusUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repos.Tx.Run(ctx, func(r *repository.Repositories) error {
		if err := r.User.Create(ctx, profile); err != nil {
			return err
		}
		return r.Credential.Create(ctx, &models.Credential{
			UserID:       profile.ID,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
		})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info().Str("user_id", profile.ID).Msg("User signed up")
	return s.openSession(ctx, profile)
}

// SignIn verifies credentials and opens a new session
func (s *authService) SignIn(ctx context.Context, email, password string) (*models.AuthResult, error) {
	email = normalizeEmail(email)

	cred, err := s.repos.Credential.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(cred.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	profile, err := s.repos.User.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	if profile.Banned {
		return nil, ErrBanned
	}

	return s.openSession(ctx, profile)
}

func (s *authService) openSession(ctx context.Context, profile *models.UserProfile) (*models.AuthResult, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    profile.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}
	if err := s.repos.Session.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Sign(profile.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.AuthResult{Token: token, ExpiresAt: session.ExpiresAt, Profile: profile}, nil
}

// SignOut revokes a session
func (s *authService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.repos.Session.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to the signed-in principal
func (s *authService) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.repos.Session.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.Active(time.Now()) || session.UserID != claims.UserID {
		return nil, ErrUnauthorized
	}

	profile, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrUnauthorized
	}
	if profile.Banned {
		return nil, ErrBanned
	}

	return &models.Principal{UserID: profile.ID, SessionID: session.ID, Profile: profile}, nil
}
