package store

import (
	"context"
	"sync"

	"goodcompany/internal/profile/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// ErrNotFound keeps store-specific 404s consistent across the in-memory and
// PostgreSQL implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "profile not found")

// Memory is the in-memory profile store. It favors clarity over performance
// and returns copies so callers never share mutable state with the map.
type Memory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.Profile
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[id.UserID]models.Profile)}
}

func (s *Memory) Save(_ context.Context, profile *models.Profile) error {
	if profile == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *Memory) FindByID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if profile, ok := s.profiles[userID]; ok {
		copied := profile
		return &copied, nil
	}
	return nil, ErrNotFound
}
