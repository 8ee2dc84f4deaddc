package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// ErrNotFound keeps store-specific 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "verification record not found")

// Memory is the in-memory verification record store.
type Memory struct {
	mu      sync.RWMutex
	records map[id.VerificationID]models.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[id.VerificationID]models.Record)}
}

func (s *Memory) Save(_ context.Context, record *models.Record) error {
	if record == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "verification record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

// FindActiveByUser returns the user's single non-terminal record, if any.
func (s *Memory) FindActiveByUser(_ context.Context, userID id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.UserID == userID && !record.Status.Terminal() {
			copied := record
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// FindLatestByUser returns the most recently submitted record for the user,
// terminal or not.
func (s *Memory) FindLatestByUser(_ context.Context, userID id.UserID) (*models.Record, error) {
	records := s.byUser(userID)
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// ListByUser returns the user's records, newest first. History of terminal
// attempts is retained, so this is the audit trail.
func (s *Memory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Record, error) {
	return s.byUser(userID), nil
}

// TransitionStatus is an atomic compare-and-set on a record's status. It is
// the guard that keeps concurrent decision requests from double-invoking the
// decision collaborator.
//
// Errors: CodeNotFound for an unknown record; CodeConflict when the record is
// no longer in the expected state.
func (s *Memory) TransitionStatus(_ context.Context, recordID id.VerificationID, from, to models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return ErrNotFound
	}
	if record.Status != from {
		return dErrors.New(dErrors.CodeConflict, "verification is in state "+record.Status.String()+", expected "+from.String())
	}
	record.Status = to
	record.UpdatedAt = now
	s.records[recordID] = record
	return nil
}

func (s *Memory) byUser(userID id.UserID) []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Record
	for _, record := range s.records {
		if record.UserID == userID {
			copied := record
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.After(result[j].SubmittedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return result
}
