package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
	"github.com/the-nook/nook-api/internal/validation"
)

func TestAuth_SignUpCreatesProfile(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	res, err := h.services.Auth.SignUp(ctx, "  Reader@Example.com ", "password1", " Ada ")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	profile := res.Profile
	assert.Equal(t, "reader@example.com", profile.Email)
	assert.Equal(t, "Ada", profile.DisplayName)
	assert.Nil(t, profile.Username)
	assert.Equal(t, models.UserStatusUser, profile.Status)
	assert.False(t, profile.Banned)
	assert.Equal(t, profile.CreatedAt, profile.UpdatedAt)

	stored, err := h.store.User.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, h.store.Credential.Credentials, "reader@example.com")
	assert.NotEqual(t, "password1", h.store.Credential.Credentials["reader@example.com"].PasswordHash)
}

func TestAuth_SignUpRejects(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	_, err := h.services.Auth.SignUp(ctx, "taken@example.com", "password1", "A")
	require.NoError(t, err)

	_, err = h.services.Auth.SignUp(ctx, "TAKEN@example.com", "password1", "B")
	assert.ErrorIs(t, err, service.ErrEmailTaken)

	var verrs validation.Errors
	_, err = h.services.Auth.SignUp(ctx, "new@example.com", "12345", "C")
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "password", verrs[0].Field)

	_, err = h.services.Auth.SignUp(ctx, "not-an-email", "password1", "D")
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "email", verrs[0].Field)
}

func TestAuth_SignIn(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	_, err := h.services.Auth.SignUp(ctx, "reader@example.com", "password1", "A")
	require.NoError(t, err)

	res, err := h.services.Auth.SignIn(ctx, "Reader@example.com", "password1")
	require.NoError(t, err)
	p, err := h.services.Auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, p.UserID)

	_, err = h.services.Auth.SignIn(ctx, "reader@example.com", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = h.services.Auth.SignIn(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuth_BannedUser(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	p := h.signUp(t, "reader@example.com")

	res, err := h.services.Auth.SignIn(ctx, "reader@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, h.services.Admin.Ban(ctx, p.UserID))

	_, err = h.services.Auth.SignIn(ctx, "reader@example.com", "password1")
	assert.ErrorIs(t, err, service.ErrBanned)

	_, err = h.services.Auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, service.ErrBanned)
}

func TestAuth_SignOutRevokesSession(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	res, err := h.services.Auth.SignUp(ctx, "reader@example.com", "password1", "A")
	require.NoError(t, err)
	p, err := h.services.Auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, h.services.Auth.SignOut(ctx, p.SessionID))
	require.NoError(t, h.services.Auth.SignOut(ctx, p.SessionID))

	_, err = h.services.Auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuth_AuthenticateRejectsGarbage(t *testing.T) {
	h := newTestHarness(t, nil)
	_, err := h.services.Auth.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}
