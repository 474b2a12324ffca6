// Package blob uploads images to a public blob host and returns their URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/the-nook/nook-api/internal/config"
)

// Uploader stores a file and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Deleter is implemented by uploaders that can remove what they stored
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

var (
	_ Deleter = (*Cloudinary)(nil)
	_ Deleter = (*S3)(nil)
)

// New builds the uploader selected by cfg.Provider
func New(cfg config.BlobConfig) (Uploader, error) {
	switch cfg.Provider {
	case "cloudinary":
		return NewCloudinary(cfg.Cloudinary)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob provider: %s", cfg.Provider)
	}
}

// objectName returns a collision-free name that keeps the original extension
func objectName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) > 10 {
		ext = ""
	}
	return uuid.New().String() + ext
}
