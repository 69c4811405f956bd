package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrInvalidUpload reports a malformed multipart file part.
var ErrInvalidUpload = errors.New("invalid upload")

// extensions for the image content types the catalog accepts; anything else
// falls back to the extension of the client-supplied filename.
var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore writes uploaded product images into a directory under the
// project root and serves them back as stable relative URLs.
type ImageStore struct {
	dir       string
	urlPrefix string
}

// NewImageStore creates an ImageStore rooted at
// <projectRoot>/public/uploads, published under /uploads.
func NewImageStore(projectRoot string) *ImageStore {
	return &ImageStore{
		dir:       filepath.Join(projectRoot, "public", "uploads"),
		urlPrefix: "/uploads",
	}
}

// Dir returns the on-disk directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file into the store under an opaque filename and
// returns its relative URL ("/uploads/<name>"). A part that cannot be opened
// or carries no content fails with ErrInvalidUpload.
func (s *ImageStore) Save(file *multipart.FileHeader) (string, error) {
	if file == nil || file.Filename == "" || file.Size == 0 {
		return "", ErrInvalidUpload
	}

	src, err := file.Open()
	if err != nil {
		return "", ErrInvalidUpload
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.New().String() + extensionFor(file)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return s.urlPrefix + "/" + name, nil
}

func extensionFor(file *multipart.FileHeader) string {
	if ext, ok := extByContentType[file.Header.Get("Content-Type")]; ok {
		return ext
	}
	if ext := filepath.Ext(file.Filename); ext != "" {
		return ext
	}
	return ".bin"
}
