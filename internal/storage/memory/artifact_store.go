// Package memory keeps artifacts and exported blobs in process memory.
package memory

import (
	"sync"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// ArtifactStore is the process-wide id -> artifact map. A single RWMutex
// guards the whole map: lookups share the lock, inserts take it exclusively.
// Entries are never removed.
type ArtifactStore struct {
	mu    sync.RWMutex
	items map[artifact.ID]artifact.Artifact
}

// NewArtifactStore constructs an empty ArtifactStore.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		items: make(map[artifact.ID]artifact.Artifact),
	}
}

// Insert stores a copy of a under id, replacing any previous entry.
func (s *ArtifactStore) Insert(id artifact.ID, a artifact.Artifact) {
	stored := artifact.Artifact{
		ContentType: a.ContentType,
		Data:        append([]byte(nil), a.Data...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = stored
}

// Lookup returns the artifact stored under id. The returned Data must not be
// modified.
func (s *ArtifactStore) Lookup(id artifact.ID) (artifact.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	return a, ok
}

// Len reports the number of stored artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
