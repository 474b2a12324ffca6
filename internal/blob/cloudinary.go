package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/the-nook/nook-api/internal/config"
)

// Cloudinary uploads images with an unsigned upload preset. Deleting needs
// the account's API key and secret.
type Cloudinary struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	preset    string
	canDelete bool
}

// NewCloudinary creates an uploader for cfg.CloudName
func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, fmt.Errorf("incomplete cloudinary config: cloud name and upload preset are required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	if base := strings.TrimSuffix(cfg.BaseURL, "/"); base != "" {
		cld.Upload.Config.API.UploadPrefix = base
	}

	return &Cloudinary{
		cld:       cld,
		cloudName: cfg.CloudName,
		preset:    cfg.UploadPreset,
		canDelete: cfg.APIKey != "" && cfg.APISecret != "",
	}, nil
}

// Upload streams the file to Cloudinary and returns its secure URL
func (c *Cloudinary) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	res, err := c.cld.Upload.UnsignedUpload(ctx, r, c.preset, uploader.UploadParams{
		PublicID: uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload failed: no secure_url in response")
	}
	return res.SecureURL, nil
}

// Delete destroys the image behind a URL returned by Upload
func (c *Cloudinary) Delete(ctx context.Context, url string) error {
	if !c.canDelete {
		return fmt.Errorf("cloudinary delete requires an api key and secret")
	}
	publicID, err := c.publicID(url)
	if err != nil {
		return err
	}

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary delete failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary delete failed: %s", res.Error.Message)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary delete failed: result=%s", res.Result)
	}
	return nil
}

// publicID extracts the public id from a delivery URL of the form
// .../<cloud>/image/upload/[v<version>/]<public id>.<ext>
func (c *Cloudinary) publicID(url string) (string, error) {
	marker := "/" + c.cloudName + "/image/upload/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", fmt.Errorf("url %q is not a cloudinary image of cloud %s", url, c.cloudName)
	}
	rest := url[i+len(marker):]
	if seg, tail, ok := strings.Cut(rest, "/"); ok && isVersion(seg) {
		rest = tail
	}
	id := strings.TrimSuffix(rest, path.Ext(rest))
	if id == "" {
		return "", fmt.Errorf("url %q has no public id", url)
	}
	return id, nil
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
