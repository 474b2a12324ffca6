package service

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/auth"
	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// AuthService defines the interface for the identity workflows
type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthResult, error)
	SignOut(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

// ArticleService defines the interface for adding and browsing articles
type ArticleService interface {
	Create(ctx context.Context, p *models.Principal, in *models.ArticleInput) (*models.Article, error)
	UploadImage(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Get(ctx context.Context, p *models.Principal, id string) (*models.Article, error)
	ListPublic(ctx context.Context, search string) ([]*models.Article, error)
	ListMine(ctx context.Context, userID string) ([]*models.OwnedArticle, error)
}

// PublicationService defines the interface for the submission and approval workflows
type PublicationService interface {
	RequestPublication(ctx context.Context, p *models.Principal, articleID string) (*models.PublicationRequest, bool, error)
	ListPending(ctx context.Context) ([]*models.PendingRequest, error)
	Approve(ctx context.Context, requestID string) error
	Deny(ctx context.Context, requestID string) error
}

// BookmarkService defines the interface for saved articles
type BookmarkService interface {
	Toggle(ctx context.Context, userID, articleID string) (bool, error)
	IsSaved(ctx context.Context, userID, articleID string) (bool, error)
	ListSaved(ctx context.Context, p *models.Principal) ([]*models.SavedEntry, error)
	Watch(ctx context.Context, userID, articleID string) (*Watch[bool], error)
}

// ProfileService defines the interface for profile self-edit
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Update(ctx context.Context, userID string, upd *models.ProfileUpdate) (*models.UserProfile, error)
	UpdateAvatar(ctx context.Context, userID, name, contentType string, r io.Reader) (*models.UserProfile, error)
	Watch(ctx context.Context, userID string) (*Watch[*models.UserProfile], error)
}

// AdminService defines the interface for user administration
type AdminService interface {
	ListUsers(ctx context.Context) ([]*models.UserProfile, error)
	Ban(ctx context.Context, userID string) error
	SetStatus(ctx context.Context, userID string, status models.UserStatus) error
}

// ReconcileService defines the interface for repairing half-resolved publication requests
type ReconcileService interface {
	Reconcile(ctx context.Context) (int, error)
	StartProcessor(ctx context.Context)
	StopProcessor()
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error
	StreamArticles(ctx context.Context, w http.ResponseWriter, format string) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Auth        AuthService
	Articles    ArticleService
	Publication PublicationService
	Bookmarks   BookmarkService
	Profile     ProfileService
	Admin       AdminService
	Reconcile   ReconcileService
	Export      ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, uploader blob.Uploader, cfg *config.Config, log zerolog.Logger) *Services {
	validator := validation.NewValidator(cfg.Articles.DefaultImage)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	return &Services{
		Auth:        newAuthService(repos, hasher, tokens, validator, log),
		Articles:    newArticleService(repos, uploader, validator, log),
		Publication: newPublicationService(repos, log),
		Bookmarks:   newBookmarkService(repos, log),
		Profile:     newProfileService(repos, uploader, validator, log),
		Admin:       newAdminService(repos, validator, log),
		Reconcile:   newReconcileService(repos, cfg.Reconcile.Interval, log),
		Export:      newExportService(repos, log),
	}
}
