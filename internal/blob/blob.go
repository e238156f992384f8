// Package blob abstracts the image blob store collaborator. Callers hand in
// bytes and receive an opaque reference; the reference is what gets stored
// on recipes and users and embedded (with a generation) in media URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference does not resolve to stored bytes.
var ErrNotFound = errors.New("blob not found")

// Store is the external blob store contract. Implementations must treat the
// returned reference as opaque to callers.
type Store interface {
	// Put stores data and returns an opaque reference for it.
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	// Open returns the stored bytes and content type for ref.
	Open(ctx context.Context, ref string) ([]byte, string, error)
	// Delete removes the blob for ref. Deleting a missing ref is not an error.
	Delete(ctx context.Context, ref string) error
}

// extByContentType maps accepted upload types to file extensions. Uploads
// outside this set are stored with a .bin extension rather than rejected;
// payload validation belongs to the handler layer.
var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FSStore is a filesystem-backed Store. References have the form
// "<uuid><ext>" and resolve to files under the configured root directory.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

// Put writes data to a new uuid-named file and returns its reference.
func (s *FSStore) Put(_ context.Context, data []byte, contentType string) (string, error) {
	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok {
		ext = ".bin"
	}
	ref := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.root, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return ref, nil
}

// Open reads the bytes for ref. The content type is derived from the
// reference extension.
func (s *FSStore) Open(_ context.Context, ref string) ([]byte, string, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentTypeOf(ref), nil
}

// Delete removes the blob file. A missing file is treated as success so
// replacement flows need no existence check.
func (s *FSStore) Delete(_ context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve rejects references that would escape the root directory.
func (s *FSStore) resolve(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "\\") || strings.Contains(ref, "..") {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, ref), nil
}

// contentTypeOf maps a reference extension back to a content type.
func contentTypeOf(ref string) string {
	ext := strings.ToLower(filepath.Ext(ref))
	for ct, e := range extByContentType {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}
