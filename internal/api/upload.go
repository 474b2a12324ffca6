package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true,
}

// imageUpload is an accepted multipart image
type imageUpload struct {
	file        multipart.File
	name        string
	contentType string
}

// readImageUpload reads the "file" part of a multipart request and checks
// its size and extension. It writes the 400 response itself and returns
// false when the upload is rejected; callers must close file otherwise.
func readImageUpload(c *gin.Context, maxSize int64) (*imageUpload, bool) {
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1<<20)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return nil, false
	}

	if maxSize > 0 && header.Size > maxSize {
		file.Close()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)),
		})
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		file.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be an image (jpg, png, gif, webp, avif)"})
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/" + strings.TrimPrefix(ext, ".")
		if ext == ".jpg" {
			contentType = "image/jpeg"
		}
	}

	return &imageUpload{file: file, name: header.Filename, contentType: contentType}, true
}
