package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/ratelimit"
)

// MockUploader is a mock blob uploader without delete support
type MockUploader struct {
	mu sync.Mutex

	BaseURL     string
	UploadError error
	Uploaded    []string
	Bodies      map[string]string
}

// Verify interface compliance
var (
	_ blob.Uploader     = (*MockUploader)(nil)
	_ blob.Uploader     = (*MockDeletingUploader)(nil)
	_ blob.Deleter      = (*MockDeletingUploader)(nil)
	_ ratelimit.Limiter = (*MockLimiter)(nil)
)

func NewMockUploader() *MockUploader {
	return &MockUploader{BaseURL: "https://blobs.test", Bodies: make(map[string]string)}
}

func (m *MockUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadError != nil {
		return "", m.UploadError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%d-%s", m.BaseURL, len(m.Uploaded)+1, name)
	m.Uploaded = append(m.Uploaded, url)
	m.Bodies[url] = string(data)
	return url, nil
}

// UploadedURLs returns a copy of the uploaded URLs
func (m *MockUploader) UploadedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Uploaded...)
}

// MockDeletingUploader is a mock blob uploader that also supports Delete
type MockDeletingUploader struct {
	*MockUploader

	DeleteError error
	Deleted     []string
}

func NewMockDeletingUploader() *MockDeletingUploader {
	return &MockDeletingUploader{MockUploader: NewMockUploader()}
}

func (m *MockDeletingUploader) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.Deleted = append(m.Deleted, url)
	delete(m.Bodies, url)
	return nil
}

// MockLimiter allows the first Limit calls per key
type MockLimiter struct {
	mu     sync.Mutex
	Limit  int
	Err    error
	counts map[string]int
}

func NewMockLimiter(limit int) *MockLimiter {
	return &MockLimiter{Limit: limit, counts: make(map[string]int)}
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return true, 0, m.Err
	}
	m.counts[key]++
	if m.counts[key] > m.Limit {
		return false, 30 * time.Second, nil
	}
	return true, 0, nil
}
