package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadStore persists uploaded files under a dedicated directory. Each
// file gets a UUID prefix so concurrent uploads of the same name never
// clobber each other, while the original name (and thus its suffix, which
// extractor resolution depends on) is preserved.
type UploadStore struct {
	dir string
}

// NewUploadStore creates the upload directory if needed
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &UploadStore{dir: dir}, nil
}

// Save streams the upload to disk and returns the stored path
func (s *UploadStore) Save(filename string, r io.Reader) (string, error) {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	path := filepath.Join(s.dir, uuid.NewString()+"_"+base)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}
	return path, nil
}

// Remove deletes a stored upload
func (s *UploadStore) Remove(path string) error {
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return fmt.Errorf("path %q is outside the upload directory", path)
	}
	return os.Remove(path)
}
