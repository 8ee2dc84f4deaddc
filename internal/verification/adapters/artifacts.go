// Package adapters holds in-process implementations of the verification
// collaborator ports, used in development and as the default wiring until a
// deployment plugs in real blob storage and review infrastructure.
package adapters

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"goodcompany/internal/verification/models"
)

// MemoryArtifactStore keeps uploaded artifacts in process memory keyed by an
// opaque UUID reference.
type MemoryArtifactStore struct {
	mu    sync.RWMutex
	blobs map[models.ArtifactRef][]byte
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{blobs: make(map[models.ArtifactRef][]byte)}
}

func (s *MemoryArtifactStore) Store(_ context.Context, content []byte, _ string) (models.ArtifactRef, error) {
	ref := models.ArtifactRef(uuid.NewString())
	copied := make([]byte, len(content))
	copy(copied, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = copied
	return ref, nil
}

// Fetch returns the stored bytes, for decider implementations that inspect
// artifacts.
func (s *MemoryArtifactStore) Fetch(_ context.Context, ref models.ArtifactRef) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[ref]
	return blob, ok
}
