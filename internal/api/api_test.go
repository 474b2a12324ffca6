package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/api"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/mocks"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/service"
)

type testEnv struct {
	router   *gin.Engine
	store    *mocks.MockStore
	uploader *mocks.MockDeletingUploader
	services *service.Services
}

func testConfig() *config.Config {
	return &config.Config{
		Env:    "test",
		Server: config.ServerConfig{Port: "8080"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
		Blob:      config.BlobConfig{Provider: "s3", MaxUploadSize: 1024 * 1024},
		Articles:  config.ArticlesConfig{DefaultImage: "/assets/placeholder.jpg"},
		Reconcile: config.ReconcileConfig{Interval: time.Minute},
	}
}

func setupTestRouter(t *testing.T, opts ...api.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := mocks.NewMockStore()
	t.Cleanup(store.Hub.Close)
	uploader := mocks.NewMockDeletingUploader()
	cfg := testConfig()
	services := service.NewServices(store.Repositories(), uploader, cfg, zerolog.Nop())

	return &testEnv{
		router:   api.NewRouter(services, cfg, zerolog.Nop(), opts...),
		store:    store,
		uploader: uploader,
		services: services,
	}
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(path, token, filename, content string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte(content))
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signUp registers a user through the API and returns the token and user ID
func (e *testEnv) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	w := e.do("POST", "/v1/auth/signup", "", map[string]string{
		"email": email, "password": "password1", "display_name": "Reader",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d: %s", email, w.Code, w.Body.String())
	}
	var res models.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	return res.Token, res.Profile.ID
}

func (e *testEnv) signUpAdmin(t *testing.T, email string) (string, string) {
	t.Helper()
	token, id := e.signUp(t, email)
	if err := e.services.Admin.SetStatus(context.Background(), id, models.UserStatusAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	return token, id
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "nook-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestHealthEndpoint_Unhealthy(t *testing.T) {
	env := setupTestRouter(t, api.WithHealthCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	w := env.do("GET", "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	env.signUp(t, "a@example.com")
	env.signUp(t, "b@example.com")

	w := env.do("GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	db := decode(t, w)["database"].(map[string]interface{})
	if db["users"].(float64) != 2 {
		t.Errorf("Expected 2 users, got %v", db["users"])
	}
	if db["publication_requests"].(float64) != 0 {
		t.Errorf("Expected 0 pending requests, got %v", db["publication_requests"])
	}
}

func TestAuthFlow(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	w := env.do("POST", "/v1/auth/signup", "", map[string]string{"email": "Reader@example.com", "password": "password1"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}

	w = env.do("POST", "/v1/auth/signin", "", map[string]string{"email": "reader@example.com", "password": "nope-nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w.Code)
	}

	w = env.do("POST", "/v1/auth/signin", "", map[string]string{"email": "reader@example.com", "password": "password1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for sign-in, got %d", w.Code)
	}
	second := decode(t, w)["token"].(string)

	w = env.do("POST", "/v1/auth/signout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for sign-out, got %d", w.Code)
	}

	w = env.do("GET", "/v1/me/profile", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after sign-out, got %d", w.Code)
	}

	w = env.do("GET", "/v1/me/profile", second, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other session to stay valid, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/v1/me/profile"},
		{"GET", "/v1/me/articles"},
		{"POST", "/v1/articles"},
		{"POST", "/v1/articles/a/bookmark"},
		{"GET", "/v1/admin/users"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(tt.method, tt.path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", w.Code)
			}
			w = env.do(tt.method, tt.path, "not-a-token", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401 for bad token, got %d", w.Code)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	for _, path := range []string{"/v1/admin/users", "/v1/admin/publication-requests", "/v1/admin/exports?resource=users"} {
		w := env.do("GET", path, token, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	env := setupTestRouter(t, api.WithLimiter(mocks.NewMockLimiter(2)))
	creds := map[string]string{"email": "nobody@example.com", "password": "password1"}

	for i := 0; i < 2; i++ {
		if w := env.do("POST", "/v1/auth/signin", "", creds); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w := env.do("POST", "/v1/auth/signin", "", creds)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Errorf("Expected Retry-After 30, got %q", w.Header().Get("Retry-After"))
	}

	// Sign-up is limited separately
	w = env.do("POST", "/v1/auth/signup", "", map[string]string{"email": "new@example.com", "password": "password1"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 for sign-up, got %d", w.Code)
	}
}

func TestRateLimit_LimiterDown(t *testing.T) {
	limiter := mocks.NewMockLimiter(0)
	limiter.Err = errors.New("redis: connection refused")
	env := setupTestRouter(t, api.WithLimiter(limiter))

	w := env.do("POST", "/v1/auth/signup", "", map[string]string{"email": "new@example.com", "password": "password1"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected limiter failure to let the request through, got %d", w.Code)
	}
}

func TestSubmissionAndApproval(t *testing.T) {
	env := setupTestRouter(t)
	userToken, _ := env.signUp(t, "reader@example.com")
	adminToken, _ := env.signUpAdmin(t, "admin@example.com")

	w := env.do("POST", "/v1/articles", userToken, map[string]interface{}{
		"title": "Concurrency in Go", "url": "https://example.com/go", "is_public": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	article := decode(t, w)
	articleID := article["id"].(string)
	if article["is_public"] != false {
		t.Errorf("Expected user article to start private")
	}

	w = env.do("POST", "/v1/articles/"+articleID+"/publication-requests", userToken, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	w = env.do("POST", "/v1/articles/"+articleID+"/publication-requests", userToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for an already pending request, got %d", w.Code)
	}

	w = env.do("GET", "/v1/me/articles", userToken, nil)
	mine := decode(t, w)["articles"].([]interface{})
	if len(mine) != 1 || mine[0].(map[string]interface{})["pending_review"] != true {
		t.Errorf("Expected one article pending review, got %v", mine)
	}

	w = env.do("GET", "/v1/admin/publication-requests", adminToken, nil)
	requests := decode(t, w)["requests"].([]interface{})
	if len(requests) != 1 {
		t.Fatalf("Expected 1 pending request, got %d", len(requests))
	}
	requestID := requests[0].(map[string]interface{})["id"].(string)

	w = env.do("POST", "/v1/admin/publication-requests/"+requestID+"/approve", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/v1/articles?q=concurrency", "", nil)
	public := decode(t, w)["articles"].([]interface{})
	if len(public) != 1 {
		t.Errorf("Expected approved article in public listing, got %d", len(public))
	}

	w = env.do("POST", "/v1/admin/publication-requests/"+requestID+"/deny", adminToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an already resolved request, got %d", w.Code)
	}
}

func TestArticleGet_PrivateHidden(t *testing.T) {
	env := setupTestRouter(t)
	ownerToken, _ := env.signUp(t, "owner@example.com")
	otherToken, _ := env.signUp(t, "other@example.com")

	w := env.do("POST", "/v1/articles", ownerToken, map[string]string{"title": "Mine", "url": "https://example.com"})
	id := decode(t, w)["id"].(string)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"owner", ownerToken, http.StatusOK},
		{"other user", otherToken, http.StatusNotFound},
		{"anonymous", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do("GET", "/v1/articles/"+id, tt.token, nil); w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestArticleCreate_Validation(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	w := env.do("POST", "/v1/articles", token, map[string]string{"url": "ftp://example.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	errs := decode(t, w)["errors"].([]interface{})
	if len(errs) != 2 {
		t.Errorf("Expected title and url errors, got %v", errs)
	}
}

func TestBookmarkToggle(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")
	w := env.do("POST", "/v1/articles", token, map[string]string{"title": "Saved", "url": "https://example.com"})
	id := decode(t, w)["id"].(string)

	steps := []bool{true, false, true}
	for i, want := range steps {
		w := env.do("POST", "/v1/articles/"+id+"/bookmark", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("toggle %d: expected 200, got %d", i+1, w.Code)
		}
		if got := decode(t, w)["saved"]; got != want {
			t.Errorf("toggle %d: expected saved=%v, got %v", i+1, want, got)
		}
	}

	w = env.do("GET", "/v1/articles/"+id+"/bookmark", token, nil)
	if decode(t, w)["saved"] != true {
		t.Errorf("Expected article to be saved")
	}

	w = env.do("GET", "/v1/me/saved", token, nil)
	if saved := decode(t, w)["saved"].([]interface{}); len(saved) != 1 {
		t.Errorf("Expected 1 saved entry, got %d", len(saved))
	}
}

func TestBookmarkEvents(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/v1/articles/a1/bookmark/events?token="+token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Expected event stream, got %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data:") {
				return line
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if data := nextData(); !strings.Contains(data, `"saved":false`) {
		t.Errorf("Expected initial saved=false, got %s", data)
	}

	if w := env.do("POST", "/v1/articles/a1/bookmark", token, nil); w.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", w.Code)
	}

	if data := nextData(); !strings.Contains(data, `"saved":true`) {
		t.Errorf("Expected saved=true after toggle, got %s", data)
	}
}

func TestProfileEvents(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/v1/me/profile/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data:") {
				return line
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if data := nextData(); !strings.Contains(data, `"email":"reader@example.com"`) {
		t.Errorf("Expected initial profile, got %s", data)
	}

	if w := env.do("PUT", "/v1/me/profile", token, map[string]string{"display_name": "Grace"}); w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", w.Code)
	}

	if data := nextData(); !strings.Contains(data, `"display_name":"Grace"`) {
		t.Errorf("Expected updated profile, got %s", data)
	}
}

func TestQueryTokenOnlyOnStreams(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	for _, path := range []string{"/v1/me/profile", "/v1/me/saved", "/v1/articles/a1/bookmark"} {
		w := env.do("GET", path+"?token="+token, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 for a query token, got %d", path, w.Code)
		}
	}

	server := httptest.NewServer(env.router)
	defer server.Close()

	for _, path := range []string{"/v1/me/profile/events", "/v1/articles/a1/bookmark/events"} {
		ctx, cancel := context.WithCancel(context.Background())
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+path+"?token="+token, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			cancel()
			t.Fatalf("%s: open stream: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200 for a query token, got %d", path, resp.StatusCode)
		}
		cancel()
		resp.Body.Close()
	}
}

func TestProfileUpdate(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	w := env.do("PUT", "/v1/me/profile", token, map[string]string{"display_name": "Ada", "username": "ada"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	profile := decode(t, w)
	if profile["display_name"] != "Ada" || profile["username"] != "ada" {
		t.Errorf("Unexpected profile %v", profile)
	}
	if profile["email"] != "reader@example.com" {
		t.Errorf("Expected email to be kept, got %v", profile["email"])
	}

	w = env.do("PUT", "/v1/me/profile", token, map[string]string{"display_name": strings.Repeat("x", 200)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestUploads(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signUp(t, "reader@example.com")

	tests := []struct {
		name     string
		path     string
		filename string
		status   int
	}{
		{"article image", "/v1/articles/images", "cover.png", http.StatusCreated},
		{"avatar", "/v1/me/profile/avatar", "me.jpg", http.StatusOK},
		{"not an image", "/v1/articles/images", "notes.txt", http.StatusBadRequest},
		{"missing file", "/v1/me/profile/avatar", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.upload(tt.path, token, tt.filename, "image-bytes")
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}

	if n := len(env.uploader.UploadedURLs()); n != 2 {
		t.Errorf("Expected 2 uploads, got %d", n)
	}
}

func TestBanBlocksUser(t *testing.T) {
	env := setupTestRouter(t)
	userToken, userID := env.signUp(t, "reader@example.com")
	adminToken, _ := env.signUpAdmin(t, "admin@example.com")

	w := env.do("POST", "/v1/admin/users/"+userID+"/ban", adminToken, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	w = env.do("GET", "/v1/me/profile", userToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for banned user, got %d", w.Code)
	}

	w = env.do("PUT", "/v1/admin/users/"+userID+"/status", adminToken, map[string]string{"status": "root"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid status, got %d", w.Code)
	}
	w = env.do("POST", "/v1/admin/users/nobody/ban", adminToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", w.Code)
	}
}

func TestExportStream(t *testing.T) {
	env := setupTestRouter(t)
	adminToken, _ := env.signUpAdmin(t, "admin@example.com")

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedBody   string
	}{
		{"missing resource", "/v1/admin/exports", http.StatusBadRequest, "resource must be one of"},
		{"invalid resource", "/v1/admin/exports?resource=comments", http.StatusBadRequest, "resource must be one of"},
		{"invalid format", "/v1/admin/exports?resource=users&format=xml", http.StatusBadRequest, "unsupported format"},
		{"csv not supported for articles", "/v1/admin/exports?resource=articles&format=csv", http.StatusBadRequest, "unsupported format"},
		{"users csv", "/v1/admin/exports?resource=users&format=csv", http.StatusOK, "admin@example.com"},
		{"users ndjson", "/v1/admin/exports?resource=users", http.StatusOK, `"email":"admin@example.com"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("GET", tt.url, adminToken, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tt.expectedBody)) {
				t.Errorf("Expected %q in response, got: %s", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestInternalErrorsHidden(t *testing.T) {
	env := setupTestRouter(t)
	adminToken, _ := env.signUpAdmin(t, "admin@example.com")
	env.store.Request.ListError = errors.New("pq: connection reset by peer")

	w := env.do("GET", "/v1/admin/publication-requests", adminToken, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "pq:") {
		t.Errorf("Expected collaborator error to be hidden, got %s", w.Body.String())
	}
	if decode(t, w)["error"] != "something went wrong, please try again" {
		t.Errorf("Unexpected error message %s", w.Body.String())
	}
}
