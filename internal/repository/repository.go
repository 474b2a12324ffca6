package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/the-nook/nook-api/internal/database"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/notify"
)

var (
	// ErrNotFound is returned by writes that target a missing record
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for the users collection
type UserRepository interface {
	Create(ctx context.Context, user *models.UserProfile) error
	Put(ctx context.Context, user *models.UserProfile) error
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	GetForUpdate(ctx context.Context, id string) (*models.UserProfile, error)
	List(ctx context.Context) ([]*models.UserProfile, error)
	SetBanned(ctx context.Context, id string, banned bool) error
	SetStatus(ctx context.Context, id string, status models.UserStatus) error
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.UserProfile) error) error
}

// CredentialRepository defines the interface for email/password records
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// SessionRepository defines the interface for sign-in sessions
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string) error
}

// ArticleRepository defines the interface for the articles collection
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	SetPublic(ctx context.Context, id string) error
	SetDenied(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Article) error) error
}

// SavedRepository defines the interface for the saved collection
type SavedRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Toggle(ctx context.Context, saved *models.SavedArticle) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.SavedArticle, error)
}

// PublicationRequestRepository defines the interface for the publicationRequests collection
type PublicationRequestRepository interface {
	CreateIfAbsent(ctx context.Context, req *models.PublicationRequest) (*models.PublicationRequest, bool, error)
	GetByID(ctx context.Context, id string) (*models.PublicationRequest, error)
	ListPending(ctx context.Context) ([]*models.PublicationRequest, error)
	Delete(ctx context.Context, id string) error
}

// TxRunner runs fn against repositories bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	Run(ctx context.Context, fn func(r *Repositories) error) error
}

// Watcher opens change subscriptions on single records
type Watcher interface {
	Watch(ctx context.Context, collection, id string) (*notify.Subscription, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	Credential CredentialRepository
	Session    SessionRepository
	Article    ArticleRepository
	Saved      SavedRepository
	Request    PublicationRequestRepository
	Tx         TxRunner
	Watcher    Watcher
}

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New creates all repositories with the given database connection. Change
// subscriptions are served from hub, which the caller feeds from a
// notify.PGListener.
func New(db *database.DB, hub *notify.Hub) *Repositories {
	watcher := &hubWatcher{hub: hub}
	r := bind(db.DB)
	r.Tx = &sqlTxRunner{db: db, watcher: watcher}
	r.Watcher = watcher
	return r
}

func bind(q dbtx) *Repositories {
	return &Repositories{
		User:       &userRepo{db: q},
		Credential: &credentialRepo{db: q},
		Session:    &sessionRepo{db: q},
		Article:    &articleRepo{db: q},
		Saved:      &savedRepo{db: q},
		Request:    &requestRepo{db: q},
	}
}

type sqlTxRunner struct {
	db      *database.DB
	watcher Watcher
}

func (t *sqlTxRunner) Run(ctx context.Context, fn func(r *Repositories) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repos := bind(tx)
	repos.Tx = nestedTx{repos: repos}
	repos.Watcher = t.watcher

	if err := fn(repos); err != nil {
		return err
	}
	return tx.Commit()
}

// nestedTx runs inside an already open transaction
type nestedTx struct {
	repos *Repositories
}

func (n nestedTx) Run(ctx context.Context, fn func(r *Repositories) error) error {
	return fn(n.repos)
}

type hubWatcher struct {
	hub *notify.Hub
}

func (w *hubWatcher) Watch(ctx context.Context, collection, id string) (*notify.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.hub.Subscribe(collection, id), nil
}

// affected converts a zero-row write into ErrNotFound
func affected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// uniqueViolation maps a Postgres unique_violation to ErrDuplicate
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
