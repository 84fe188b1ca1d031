// Package local stores uploaded image files on the local filesystem. The
// upload step is deliberately dumb: save the file, hand back a web path. The
// image record pointing at that path is created in a separate request, so an
// aborted upload can leave an orphan file; no compensating cleanup runs.
package local

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// WebPrefix is the URL prefix the router serves uploaded files under.
const WebPrefix = "/uploads"

// Storage is a local-disk upload target.
type Storage struct {
	absBasePath string
}

// NewStorage creates the upload directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory '%s': %w", absPath, err)
	}

	return &Storage{
		absBasePath: absPath + string(os.PathSeparator),
	}, nil
}

// Save stores the uploaded file under a random identifier (the original
// extension is kept) and returns the web path to reference it by.
func (s *Storage) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	identifier := uuid.New().String() + ext

	dstPath := filepath.Join(s.absBasePath, identifier)

	// The identifier is generated, but keep the traversal guard anyway.
	if !strings.HasPrefix(dstPath, s.absBasePath) {
		return "", fmt.Errorf("invalid file path: %s", identifier)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}

	return path.Join(WebPrefix, identifier), nil
}

// Delete removes a previously stored file given its web path.
func (s *Storage) Delete(webPath string) error {
	identifier := path.Base(webPath)
	if identifier == "." || identifier == "/" {
		return fmt.Errorf("invalid file path: %s", webPath)
	}

	fullPath := filepath.Join(s.absBasePath, identifier)
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return fmt.Errorf("invalid file path: %s", webPath)
	}

	err := os.Remove(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file to delete not found: %s", identifier)
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}
	return nil
}

// BasePath returns the absolute directory files are stored in.
func (s *Storage) BasePath() string {
	return s.absBasePath
}
