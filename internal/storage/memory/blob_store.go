package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

type blob struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// BlobStore is the in-memory archive backend, mostly useful in development and
// tests. Nothing reads it back into the artifact store.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// PutObject copies the content and returns a memory:// URI.
func (s *BlobStore) PutObject(_ context.Context, obj artifact.Object) (string, error) {
	if strings.TrimSpace(obj.Path) == "" {
		return "", errors.New("path is required")
	}
	data, err := io.ReadAll(obj.Data)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", obj.Path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[obj.Path] = blob{
		data:        data,
		contentType: obj.ContentType,
		metadata:    maps.Clone(obj.Metadata),
	}
	return "memory://" + obj.Path, nil
}

// Object returns a copy of the stored blob and its content type.
func (s *BlobStore) Object(path string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), b.data...), b.contentType, true
}

// Metadata returns a copy of the metadata stored with path.
func (s *BlobStore) Metadata(path string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.blobs[path].metadata)
}

// Len reports how many objects are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
