package models

import (
	"time"
)

// MaxArticleLabels caps both tags and categories on an article
const MaxArticleLabels = 5

// Article represents a bookmarked or submitted article
type Article struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	OriginalAuthor string    `json:"original_author" db:"original_author"`
	Image          string    `json:"image" db:"image"`
	Tags           []string  `json:"tags" db:"tags"`
	Categories     []string  `json:"categories" db:"categories"`
	URL            string    `json:"url" db:"url"`
	IsPublic       bool      `json:"is_public" db:"is_public"`
	Denied         bool      `json:"denied" db:"denied"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ArticleInput is the payload accepted when a principal adds an article
type ArticleInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	OriginalAuthor string   `json:"original_author"`
	Image          string   `json:"image"`
	Tags           []string `json:"tags"`
	Categories     []string `json:"categories"`
	URL            string   `json:"url"`
	IsPublic       bool     `json:"is_public"`
}

// ArticleFilter narrows article listings
type ArticleFilter struct {
	PublicOnly bool
	CreatedBy  string
	Search     string
}

// OwnedArticle is an article in its owner's listing, flagged when a
// publication request is waiting for review
type OwnedArticle struct {
	Article
	PendingReview bool `json:"pending_review"`
}
