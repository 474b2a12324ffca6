package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/the-nook/nook-api/internal/models"
)

const userColumns = `id, email, display_name, username, status, banned, avatar_url, created_at, updated_at`

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.UserProfile, error) {
	var user models.UserProfile
	var username sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.DisplayName, &username, &user.Status,
		&user.Banned, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if username.Valid {
		user.Username = &username.String
	}
	return &user, nil
}

func usernameArg(u *models.UserProfile) sql.NullString {
	if u.Username == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *u.Username, Valid: true}
}

// Create inserts a new profile
func (r *userRepo) Create(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, usernameArg(user), user.Status,
		user.Banned, user.AvatarURL, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// Put overwrites the whole profile document. Every column, created_at
// included, is taken from user.
func (r *userRepo) Put(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			status = EXCLUDED.status,
			banned = EXCLUDED.banned,
			avatar_url = EXCLUDED.avatar_url,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, usernameArg(user), user.Status,
		user.Banned, user.AvatarURL, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetForUpdate reads a profile and locks its row until the surrounding
// transaction ends. Outside Tx.Run the lock is released immediately.
func (r *userRepo) GetForUpdate(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns every profile, oldest first
func (r *userRepo) List(ctx context.Context) ([]*models.UserProfile, error) {
	var users []*models.UserProfile
	err := r.StreamAll(ctx, func(u *models.UserProfile) error {
		users = append(users, u)
		return nil
	})
	return users, err
}

// SetBanned flips the ban flag
func (r *userRepo) SetBanned(ctx context.Context, id string, banned bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET banned = $1, updated_at = $2 WHERE id = $3`,
		banned, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// SetStatus changes the profile status
func (r *userRepo) SetStatus(ctx context.Context, id string, status models.UserStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// StreamAll streams all users for export (memory efficient)
func (r *userRepo) StreamAll(ctx context.Context, callback func(*models.UserProfile) error) error {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return err
		}
		if err := callback(user); err != nil {
			return err
		}
	}

	return rows.Err()
}

// credentialRepo is the concrete implementation of CredentialRepository
type credentialRepo struct {
	db dbtx
}

// Create inserts a credential; email uniqueness is enforced by the table
func (r *credentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		cred.UserID, cred.Email, cred.PasswordHash, cred.CreatedAt,
	)
	return uniqueViolation(err)
}

// GetByEmail retrieves the credential registered for an email
func (r *credentialRepo) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var cred models.Credential
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, created_at FROM credentials WHERE email = $1`, email,
	).Scan(&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// EmailExists checks if a credential with the given email exists
func (r *credentialRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM credentials WHERE email = $1)", email).Scan(&exists)
	return exists, err
}

// sessionRepo is the concrete implementation of SessionRepository
type sessionRepo struct {
	db dbtx
}

// Create inserts a new session
func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	return err
}

// GetByID retrieves a session by ID
func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	return &session, nil
}

// Revoke marks a session as signed out. Revoking twice is a no-op.
func (r *sessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now(), id,
	)
	return err
}
