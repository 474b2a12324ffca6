package repository

import (
	"context"

	"github.com/the-nook/nook-api/internal/models"
)

// savedRepo is the concrete implementation of SavedRepository
type savedRepo struct {
	db dbtx
}

// Exists checks if the composite bookmark record exists
func (r *savedRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM saved WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// Toggle deletes the record when present and inserts it otherwise, reporting
// whether the pair is saved afterwards. Both statements run on the same
// connection; callers wanting atomicity run it through Repositories.Tx.
func (r *savedRepo) Toggle(ctx context.Context, saved *models.SavedArticle) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved WHERE id = $1`, saved.ID)
	if err != nil {
		return false, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return false, err
	} else if n > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved (id, user_id, article_id, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, saved.ID, saved.UserID, saved.ArticleID, saved.SavedAt)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByUser returns a principal's bookmarks, most recent first
func (r *savedRepo) ListByUser(ctx context.Context, userID string) ([]*models.SavedArticle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, article_id, saved_at FROM saved WHERE user_id = $1 ORDER BY saved_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := []*models.SavedArticle{}
	for rows.Next() {
		var s models.SavedArticle
		if err := rows.Scan(&s.ID, &s.UserID, &s.ArticleID, &s.SavedAt); err != nil {
			return nil, err
		}
		saved = append(saved, &s)
	}
	return saved, rows.Err()
}
