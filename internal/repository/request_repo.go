package repository

import (
	"context"
	"database/sql"

	"github.com/the-nook/nook-api/internal/models"
)

// requestRepo is the concrete implementation of PublicationRequestRepository
type requestRepo struct {
	db dbtx
}

// CreateIfAbsent inserts req unless the article already has a pending
// request, in which case the existing one is returned with created=false
func (r *requestRepo) CreateIfAbsent(ctx context.Context, req *models.PublicationRequest) (*models.PublicationRequest, bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO publication_requests (id, article_id, status, requested_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (article_id) WHERE status = 'pending' DO NOTHING
	`, req.ID, req.ArticleID, req.Status, req.RequestedAt)
	if err != nil {
		return nil, false, err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return req, true, nil
	}

	var existing models.PublicationRequest
	err = r.db.QueryRowContext(ctx, `
		SELECT id, article_id, status, requested_at
		FROM publication_requests WHERE article_id = $1 AND status = 'pending'
	`, req.ArticleID).Scan(&existing.ID, &existing.ArticleID, &existing.Status, &existing.RequestedAt)
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetByID retrieves a request by ID
func (r *requestRepo) GetByID(ctx context.Context, id string) (*models.PublicationRequest, error) {
	var req models.PublicationRequest
	err := r.db.QueryRowContext(ctx,
		`SELECT id, article_id, status, requested_at FROM publication_requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.ArticleID, &req.Status, &req.RequestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPending retrieves all pending requests, oldest first
func (r *requestRepo) ListPending(ctx context.Context) ([]*models.PublicationRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, article_id, status, requested_at
		FROM publication_requests WHERE status = 'pending'
		ORDER BY requested_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*models.PublicationRequest{}
	for rows.Next() {
		var req models.PublicationRequest
		if err := rows.Scan(&req.ID, &req.ArticleID, &req.Status, &req.RequestedAt); err != nil {
			return nil, err
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

// Delete removes a request; ErrNotFound when it is already gone
func (r *requestRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM publication_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
