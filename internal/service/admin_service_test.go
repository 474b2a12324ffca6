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

func TestAdmin_ListUsers(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	users, err := h.services.Admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	h.signUp(t, "a@example.com")
	h.signUp(t, "b@example.com")
	users, err = h.services.Admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdmin_BanAndStatus(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	u := h.signUp(t, "u@example.com")

	require.NoError(t, h.services.Admin.Ban(ctx, u.UserID))
	require.NoError(t, h.services.Admin.SetStatus(ctx, u.UserID, models.UserStatusAdmin))

	stored, err := h.store.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, stored.Banned)
	assert.Equal(t, models.UserStatusAdmin, stored.Status)
	assert.True(t, u.Profile.CreatedAt.Equal(stored.CreatedAt))

	assert.ErrorIs(t, h.services.Admin.Ban(ctx, "nobody"), service.ErrNotFound)
	assert.ErrorIs(t, h.services.Admin.SetStatus(ctx, "nobody", models.UserStatusUser), service.ErrNotFound)

	var verrs validation.Errors
	assert.ErrorAs(t, h.services.Admin.SetStatus(ctx, u.UserID, "owner"), &verrs)
}
