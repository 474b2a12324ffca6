package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/mocks"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
)

type testHarness struct {
	store    *mocks.MockStore
	services *service.Services
}

func testConfig() *config.Config {
	return &config.Config{
		Env: "test",
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
		Articles:  config.ArticlesConfig{DefaultImage: "/assets/placeholder.jpg"},
		Reconcile: config.ReconcileConfig{Enabled: true, Interval: 10 * time.Millisecond},
	}
}

func newTestHarness(t *testing.T, uploader blob.Uploader) *testHarness {
	t.Helper()
	if uploader == nil {
		uploader = mocks.NewMockUploader()
	}
	store := mocks.NewMockStore()
	t.Cleanup(store.Hub.Close)
	return &testHarness{
		store:    store,
		services: service.NewServices(store.Repositories(), uploader, testConfig(), zerolog.Nop()),
	}
}

// signUp registers a user and returns the authenticated principal
func (h *testHarness) signUp(t *testing.T, email string) *models.Principal {
	t.Helper()
	ctx := context.Background()
	res, err := h.services.Auth.SignUp(ctx, email, "password1", "Reader")
	require.NoError(t, err)
	p, err := h.services.Auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	return p
}

// signUpAdmin registers a user and promotes them to admin
func (h *testHarness) signUpAdmin(t *testing.T, email string) *models.Principal {
	t.Helper()
	p := h.signUp(t, email)
	require.NoError(t, h.services.Admin.SetStatus(context.Background(), p.UserID, models.UserStatusAdmin))
	p.Profile.Status = models.UserStatusAdmin
	return p
}

// seedArticle stores an article directly
func (h *testHarness) seedArticle(t *testing.T, id, owner string, public bool) *models.Article {
	t.Helper()
	now := time.Now()
	a := &models.Article{
		ID:         id,
		Title:      "Article " + id,
		URL:        "https://example.com/" + id,
		Tags:       []string{},
		Categories: []string{},
		IsPublic:   public,
		CreatedBy:  owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, h.store.Article.Create(context.Background(), a))
	return a
}

func (h *testHarness) article(t *testing.T, id string) *models.Article {
	t.Helper()
	a, err := h.store.Article.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}
