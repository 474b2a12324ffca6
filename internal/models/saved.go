package models

import (
	"time"
)

// SavedArticle records that a principal bookmarked an article
type SavedArticle struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ArticleID string    `json:"article_id" db:"article_id"`
	SavedAt   time.Time `json:"saved_at" db:"saved_at"`
}

// SavedArticleID returns the composite key of a (principal, article) pair
func SavedArticleID(userID, articleID string) string {
	return userID + "_" + articleID
}

// NewSavedArticle builds the bookmark record for a pair
func NewSavedArticle(userID, articleID string, now time.Time) *SavedArticle {
	return &SavedArticle{
		ID:        SavedArticleID(userID, articleID),
		UserID:    userID,
		ArticleID: articleID,
		SavedAt:   now,
	}
}

// SavedEntry is a bookmark joined with its article
type SavedEntry struct {
	SavedArticle
	Article *Article `json:"article"`
}
