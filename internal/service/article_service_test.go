package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-nook/nook-api/internal/mocks"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
	"github.com/the-nook/nook-api/internal/validation"
)

func TestArticles_CreateNonAdminIsPrivate(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	u := h.signUp(t, "u@example.com")

	a, err := h.services.Articles.Create(ctx, u, &models.ArticleInput{
		Title:      " Why Go ",
		URL:        "https://example.com/go",
		Tags:       []string{"go", "Go", " ", "a", "b", "c", "d", "e"},
		Categories: []string{"lang"},
		IsPublic:   true,
	})
	require.NoError(t, err)

	assert.False(t, a.IsPublic)
	assert.False(t, a.Denied)
	assert.Equal(t, "Why Go", a.Title)
	assert.Equal(t, u.UserID, a.CreatedBy)
	assert.Equal(t, "/assets/placeholder.jpg", a.Image)
	assert.Equal(t, []string{"go", "a", "b", "c", "d"}, a.Tags)
	assert.Equal(t, []string{"lang"}, a.Categories)
	assert.Contains(t, h.store.Article.Articles, a.ID)
}

func TestArticles_CreateAdminMayPublish(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	admin := h.signUpAdmin(t, "admin@example.com")

	a, err := h.services.Articles.Create(ctx, admin, &models.ArticleInput{Title: "x", URL: "https://example.com", IsPublic: true})
	require.NoError(t, err)
	assert.True(t, a.IsPublic)

	b, err := h.services.Articles.Create(ctx, admin, &models.ArticleInput{Title: "y", URL: "https://example.com"})
	require.NoError(t, err)
	assert.False(t, b.IsPublic)
}

func TestArticles_CreateValidation(t *testing.T) {
	h := newTestHarness(t, nil)
	u := h.signUp(t, "u@example.com")

	_, err := h.services.Articles.Create(context.Background(), u, &models.ArticleInput{URL: "nope"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Empty(t, h.store.Article.Articles)
}

func TestArticles_GetVisibility(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	owner := h.signUp(t, "owner@example.com")
	other := h.signUp(t, "other@example.com")
	admin := h.signUpAdmin(t, "admin@example.com")
	h.seedArticle(t, "private", owner.UserID, false)
	h.seedArticle(t, "public", owner.UserID, true)

	_, err := h.services.Articles.Get(ctx, nil, "public")
	assert.NoError(t, err)

	_, err = h.services.Articles.Get(ctx, owner, "private")
	assert.NoError(t, err)
	_, err = h.services.Articles.Get(ctx, admin, "private")
	assert.NoError(t, err)
	_, err = h.services.Articles.Get(ctx, other, "private")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = h.services.Articles.Get(ctx, nil, "private")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = h.services.Articles.Get(ctx, owner, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestArticles_ListPublic(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	u := h.signUp(t, "u@example.com")
	h.seedArticle(t, "a", u.UserID, true)
	h.seedArticle(t, "b", u.UserID, false)
	c := h.seedArticle(t, "c", u.UserID, true)

	all, err := h.services.Articles.ListPublic(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := h.services.Articles.ListPublic(ctx, strings.ToUpper("article c"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)
}

func TestArticles_ListMineFlagsPending(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()
	u := h.signUp(t, "u@example.com")
	other := h.signUp(t, "o@example.com")
	h.seedArticle(t, "a", u.UserID, false)
	h.seedArticle(t, "b", u.UserID, false)
	h.seedArticle(t, "x", other.UserID, false)

	_, _, err := h.services.Publication.RequestPublication(ctx, u, "a")
	require.NoError(t, err)

	mine, err := h.services.Articles.ListMine(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	pending := map[string]bool{}
	for _, a := range mine {
		pending[a.ID] = a.PendingReview
	}
	assert.Equal(t, map[string]bool{"a": true, "b": false}, pending)
}

func TestArticles_UploadImage(t *testing.T) {
	uploader := mocks.NewMockUploader()
	h := newTestHarness(t, uploader)

	url, err := h.services.Articles.UploadImage(context.Background(), "cover.jpg", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", uploader.Bodies[url])
}
