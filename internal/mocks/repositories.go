package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/notify"
	"github.com/the-nook/nook-api/internal/repository"
)

// MockStore is an in-memory document store shared by the mock repositories.
// Records are copied on the way in and out, so callers never alias stored
// state. Writes publish changes to Hub.
type MockStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	Hub *notify.Hub

	User       *MockUserRepository
	Credential *MockCredentialRepository
	Session    *MockSessionRepository
	Article    *MockArticleRepository
	Saved      *MockSavedRepository
	Request    *MockPublicationRequestRepository

	// TxError is returned by Tx.Run before fn is invoked
	TxError error
	TxCalls int
}

// Verify interface compliance
var (
	_ repository.UserRepository               = (*MockUserRepository)(nil)
	_ repository.CredentialRepository         = (*MockCredentialRepository)(nil)
	_ repository.SessionRepository            = (*MockSessionRepository)(nil)
	_ repository.ArticleRepository            = (*MockArticleRepository)(nil)
	_ repository.SavedRepository              = (*MockSavedRepository)(nil)
	_ repository.PublicationRequestRepository = (*MockPublicationRequestRepository)(nil)
	_ repository.TxRunner                     = (*MockStore)(nil)
	_ repository.Watcher                      = (*MockStore)(nil)
)

func NewMockStore() *MockStore {
	s := &MockStore{Hub: notify.NewHub(zerolog.Nop())}
	s.User = &MockUserRepository{store: s, Users: make(map[string]*models.UserProfile)}
	s.Credential = &MockCredentialRepository{store: s, Credentials: make(map[string]*models.Credential)}
	s.Session = &MockSessionRepository{store: s, Sessions: make(map[string]*models.Session)}
	s.Article = &MockArticleRepository{store: s, Articles: make(map[string]*models.Article)}
	s.Saved = &MockSavedRepository{store: s, Saved: make(map[string]*models.SavedArticle)}
	s.Request = &MockPublicationRequestRepository{store: s, Requests: make(map[string]*models.PublicationRequest)}
	return s
}

// Repositories returns the mock repositories wired as a repository.Repositories
func (s *MockStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       s.User,
		Credential: s.Credential,
		Session:    s.Session,
		Article:    s.Article,
		Saved:      s.Saved,
		Request:    s.Request,
		Tx:         s,
		Watcher:    s,
	}
}

type snapshot struct {
	users       map[string]*models.UserProfile
	credentials map[string]*models.Credential
	sessions    map[string]*models.Session
	articles    map[string]*models.Article
	saved       map[string]*models.SavedArticle
	requests    map[string]*models.PublicationRequest
}

func copyMap[V any](m map[string]*V) map[string]*V {
	out := make(map[string]*V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Run serialises transactions and restores the pre-transaction state when
// fn returns an error
func (s *MockStore) Run(ctx context.Context, fn func(r *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.TxCalls++
	if s.TxError != nil {
		s.mu.Unlock()
		return s.TxError
	}
	snap := snapshot{
		users:       copyMap(s.User.Users),
		credentials: copyMap(s.Credential.Credentials),
		sessions:    copyMap(s.Session.Sessions),
		articles:    copyMap(s.Article.Articles),
		saved:       copyMap(s.Saved.Saved),
		requests:    copyMap(s.Request.Requests),
	}
	s.mu.Unlock()

	repos := s.Repositories()
	repos.Tx = nestedTx{repos: repos}

	if err := fn(repos); err != nil {
		s.mu.Lock()
		s.User.Users = snap.users
		s.Credential.Credentials = snap.credentials
		s.Session.Sessions = snap.sessions
		s.Article.Articles = snap.articles
		s.Saved.Saved = snap.saved
		s.Request.Requests = snap.requests
		s.mu.Unlock()
		return err
	}
	return nil
}

type nestedTx struct {
	repos *repository.Repositories
}

func (n nestedTx) Run(ctx context.Context, fn func(r *repository.Repositories) error) error {
	return fn(n.repos)
}

// Watch subscribes to changes on one record
func (s *MockStore) Watch(ctx context.Context, collection, id string) (*notify.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Hub.Subscribe(collection, id), nil
}

func (s *MockStore) publish(collection, id string, op models.ChangeOp) {
	s.Hub.Publish(models.Change{Collection: collection, ID: id, Op: op})
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	store *MockStore

	Users     map[string]*models.UserProfile
	PutError  error
	PutCalls  int
	GetError  error
	LockCalls int
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.UserProfile) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u := *user
	m.Users[user.ID] = &u
	m.store.publish(models.CollectionUsers, user.ID, models.ChangeUpsert)
	return nil
}

func (m *MockUserRepository) Put(ctx context.Context, user *models.UserProfile) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.PutCalls++
	if m.PutError != nil {
		return m.PutError
	}
	u := *user
	m.Users[user.ID] = &u
	m.store.publish(models.CollectionUsers, user.ID, models.ChangeUpsert)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

// GetForUpdate behaves like GetByID; MockStore.Run already serialises
// transactions
func (m *MockUserRepository) GetForUpdate(ctx context.Context, id string) (*models.UserProfile, error) {
	m.store.mu.Lock()
	m.LockCalls++
	m.store.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	var users []*models.UserProfile
	err := m.StreamAll(ctx, func(u *models.UserProfile) error {
		users = append(users, u)
		return nil
	})
	return users, err
}

func (m *MockUserRepository) update(id string, fn func(u *models.UserProfile)) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return repository.ErrNotFound
	}
	next := *u
	fn(&next)
	next.UpdatedAt = time.Now()
	m.Users[id] = &next
	m.store.publish(models.CollectionUsers, id, models.ChangeUpsert)
	return nil
}

func (m *MockUserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return m.update(id, func(u *models.UserProfile) { u.Banned = banned })
}

func (m *MockUserRepository) SetStatus(ctx context.Context, id string, status models.UserStatus) error {
	return m.update(id, func(u *models.UserProfile) { u.Status = status })
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return len(m.Users), nil
}

func (m *MockUserRepository) StreamAll(ctx context.Context, callback func(*models.UserProfile) error) error {
	m.store.mu.Lock()
	users := make([]*models.UserProfile, 0, len(m.Users))
	for _, u := range m.Users {
		c := *u
		users = append(users, &c)
	}
	m.store.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	for _, user := range users {
		if err := callback(user); err != nil {
			return err
		}
	}
	return nil
}

// MockCredentialRepository is a mock implementation of CredentialRepository
type MockCredentialRepository struct {
	store *MockStore

	// keyed by email
	Credentials map[string]*models.Credential
}

func (m *MockCredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, exists := m.Credentials[cred.Email]; exists {
		return repository.ErrDuplicate
	}
	c := *cred
	m.Credentials[cred.Email] = &c
	return nil
}

func (m *MockCredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.Credentials[email]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *MockCredentialRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, exists := m.Credentials[email]
	return exists, nil
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	store *MockStore

	Sessions map[string]*models.Session
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s := *session
	m.Sessions[session.ID] = &s
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok || s.RevokedAt != nil {
		return nil
	}
	next := *s
	now := time.Now()
	next.RevokedAt = &now
	m.Sessions[id] = &next
	return nil
}

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	store *MockStore

	Articles       map[string]*models.Article
	InsertError    error
	SetPublicError error
	SetDeniedError error
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	a := *article
	m.Articles[article.ID] = &a
	m.store.publish(models.CollectionArticles, article.ID, models.ChangeUpsert)
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	a, ok := m.Articles[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	articles := []*models.Article{}
	for _, a := range m.Articles {
		if filter.PublicOnly && !a.IsPublic {
			continue
		}
		if filter.CreatedBy != "" && a.CreatedBy != filter.CreatedBy {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Title), search) &&
			!strings.Contains(strings.ToLower(a.OriginalAuthor), search) &&
			!strings.Contains(strings.ToLower(a.Description), search) {
			continue
		}
		c := *a
		articles = append(articles, &c)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].CreatedAt.After(articles[j].CreatedAt) })
	return articles, nil
}

func (m *MockArticleRepository) update(id string, injected error, fn func(a *models.Article)) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if injected != nil {
		return injected
	}
	a, ok := m.Articles[id]
	if !ok {
		return repository.ErrNotFound
	}
	next := *a
	fn(&next)
	next.UpdatedAt = time.Now()
	m.Articles[id] = &next
	m.store.publish(models.CollectionArticles, id, models.ChangeUpsert)
	return nil
}

func (m *MockArticleRepository) SetPublic(ctx context.Context, id string) error {
	return m.update(id, m.SetPublicError, func(a *models.Article) { a.IsPublic = true })
}

func (m *MockArticleRepository) SetDenied(ctx context.Context, id string) error {
	return m.update(id, m.SetDeniedError, func(a *models.Article) { a.Denied = true })
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return len(m.Articles), nil
}

func (m *MockArticleRepository) StreamAll(ctx context.Context, callback func(*models.Article) error) error {
	articles, err := m.List(ctx, models.ArticleFilter{})
	if err != nil {
		return err
	}
	for i := len(articles) - 1; i >= 0; i-- {
		if err := callback(articles[i]); err != nil {
			return err
		}
	}
	return nil
}

// MockSavedRepository is a mock implementation of SavedRepository
type MockSavedRepository struct {
	store *MockStore

	Saved       map[string]*models.SavedArticle
	ToggleError error
}

func (m *MockSavedRepository) Exists(ctx context.Context, id string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, exists := m.Saved[id]
	return exists, nil
}

func (m *MockSavedRepository) Toggle(ctx context.Context, saved *models.SavedArticle) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.ToggleError != nil {
		return false, m.ToggleError
	}
	if _, exists := m.Saved[saved.ID]; exists {
		delete(m.Saved, saved.ID)
		m.store.publish(models.CollectionSaved, saved.ID, models.ChangeDelete)
		return false, nil
	}
	s := *saved
	m.Saved[saved.ID] = &s
	m.store.publish(models.CollectionSaved, saved.ID, models.ChangeUpsert)
	return true, nil
}

func (m *MockSavedRepository) ListByUser(ctx context.Context, userID string) ([]*models.SavedArticle, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	saved := []*models.SavedArticle{}
	for _, s := range m.Saved {
		if s.UserID == userID {
			c := *s
			saved = append(saved, &c)
		}
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].SavedAt.After(saved[j].SavedAt) })
	return saved, nil
}

// MockPublicationRequestRepository is a mock implementation of PublicationRequestRepository
type MockPublicationRequestRepository struct {
	store *MockStore

	Requests    map[string]*models.PublicationRequest
	ListError   error
	DeleteError error
	DeleteCalls int
}

func (m *MockPublicationRequestRepository) CreateIfAbsent(ctx context.Context, req *models.PublicationRequest) (*models.PublicationRequest, bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.Requests {
		if r.ArticleID == req.ArticleID && r.Status == models.RequestStatusPending {
			existing := *r
			return &existing, false, nil
		}
	}
	r := *req
	m.Requests[req.ID] = &r
	m.store.publish(models.CollectionPublicationRequests, req.ID, models.ChangeUpsert)
	return req, true, nil
}

func (m *MockPublicationRequestRepository) GetByID(ctx context.Context, id string) (*models.PublicationRequest, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.Requests[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (m *MockPublicationRequestRepository) ListPending(ctx context.Context) ([]*models.PublicationRequest, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	requests := []*models.PublicationRequest{}
	for _, r := range m.Requests {
		if r.Status == models.RequestStatusPending {
			c := *r
			requests = append(requests, &c)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].RequestedAt.Before(requests[j].RequestedAt) })
	return requests, nil
}

func (m *MockPublicationRequestRepository) Delete(ctx context.Context, id string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.Requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.Requests, id)
	m.store.publish(models.CollectionPublicationRequests, id, models.ChangeDelete)
	return nil
}
