// Package blobstore keeps uploaded binary objects (banner images) and hands
// out public URLs for them.
package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var ErrInvalidPath = errors.New("blobstore: invalid object path")

// Handle identifies a stored object.
type Handle struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Store is the blob store contract.
type Store interface {
	Upload(ctx context.Context, objectPath string, data []byte) (Handle, error)
	PublicURL(h Handle) string
}

// FileStore stores objects as files under a root directory. Objects are
// served by the HTTP layer under BaseURL.
type FileStore struct {
	root    string
	baseURL string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blobstore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory holding the objects.
func (s *FileStore) Root() string {
	return s.root
}

// cleanPath rejects absolute paths and parent traversal.
func cleanPath(objectPath string) (string, error) {
	if objectPath == "" || strings.HasPrefix(objectPath, "/") || strings.Contains(objectPath, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	clean := path.Clean(objectPath)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return clean, nil
}

// Checksum is the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Upload writes data to objectPath, replacing any existing object with
// different content. An object already holding the same bytes is left
// untouched. The write goes through a temporary file so readers never see a
// partial object.
func (s *FileStore) Upload(ctx context.Context, objectPath string, data []byte) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	clean, err := cleanPath(objectPath)
	if err != nil {
		return Handle{}, err
	}
	h := Handle{Path: clean, Size: int64(len(data)), Checksum: Checksum(data)}
	if s.Verify(h) == nil {
		return h, nil
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Handle{}, fmt.Errorf("blobstore: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Handle{}, fmt.Errorf("blobstore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Handle{}, fmt.Errorf("blobstore: write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return Handle{}, fmt.Errorf("blobstore: close %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Handle{}, fmt.Errorf("blobstore: commit %s: %w", clean, err)
	}
	return h, nil
}

// PublicURL returns the URL the object is served at.
func (s *FileStore) PublicURL(h Handle) string {
	segments := strings.Split(h.Path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

// Verify re-reads an object and compares it with the handle's checksum.
func (s *FileStore) Verify(h Handle) error {
	clean, err := cleanPath(h.Path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil {
		return fmt.Errorf("blobstore: read %s: %w", clean, err)
	}
	if Checksum(data) != h.Checksum {
		return fmt.Errorf("blobstore: checksum mismatch for %s", clean)
	}
	return nil
}
