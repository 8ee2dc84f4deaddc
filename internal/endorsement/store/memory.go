package store

import (
	"context"
	"sort"
	"sync"

	"goodcompany/internal/endorsement/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// ErrNotFound keeps store-specific 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "endorsement not found")

// Memory is the in-memory endorsement store.
type Memory struct {
	mu    sync.RWMutex
	edges map[id.EndorsementID]models.Endorsement
}

func NewMemory() *Memory {
	return &Memory{edges: make(map[id.EndorsementID]models.Endorsement)}
}

func (s *Memory) Save(_ context.Context, endorsement *models.Endorsement) error {
	if endorsement == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "endorsement is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[endorsement.ID] = *endorsement
	return nil
}

// FindActivePair returns the single active edge endorser → endorsed, if any.
func (s *Memory) FindActivePair(_ context.Context, endorser, endorsed id.UserID) (*models.Endorsement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, edge := range s.edges {
		if edge.EndorserID == endorser && edge.EndorsedID == endorsed && edge.Active() {
			copied := edge
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListActiveByEndorsed returns the active endorsements received by a user,
// oldest first for stable rendering.
func (s *Memory) ListActiveByEndorsed(_ context.Context, endorsed id.UserID) ([]*models.Endorsement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Endorsement
	for _, edge := range s.edges {
		if edge.EndorsedID == endorsed && edge.Active() {
			copied := edge
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}
