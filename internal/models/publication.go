package models

import (
	"time"
)

// RequestStatus represents the status of a publication request
type RequestStatus string

// RequestStatusPending is the only persisted status; resolved requests are deleted
const RequestStatusPending RequestStatus = "pending"

// PublicationRequest asks an admin to make a private article public
type PublicationRequest struct {
	ID          string        `json:"id" db:"id"`
	ArticleID   string        `json:"article_id" db:"article_id"`
	Status      RequestStatus `json:"status" db:"status"`
	RequestedAt time.Time     `json:"requested_at" db:"requested_at"`
}

// PendingRequest is a publication request joined with its article
type PendingRequest struct {
	PublicationRequest
	Article *Article `json:"article"`
}

// Resolution is the admin decision applied to a publication request
type Resolution string

const (
	ResolutionApprove Resolution = "approve"
	ResolutionDeny    Resolution = "deny"
)
