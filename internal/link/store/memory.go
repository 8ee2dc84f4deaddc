package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"goodcompany/internal/link/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

var (
	ErrNotFound  = dErrors.New(dErrors.CodeNotFound, "link not found")
	ErrDuplicate = dErrors.New(dErrors.CodeConflict, "link already exists for this profile")
)

type voteKey struct {
	link  id.LinkID
	actor id.UserID
	kind  models.VoteKind
}

// Memory is an in-memory link store. Vote deduplication and counter
// increments happen under a single lock so concurrent votes from the same
// actor count exactly once.
type Memory struct {
	mu    sync.RWMutex
	links map[id.LinkID]models.Link
	votes map[voteKey]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		links: make(map[id.LinkID]models.Link),
		votes: make(map[voteKey]struct{}),
	}
}

// Create inserts a new link. A second link with the same URL on the same
// profile is rejected with ErrDuplicate.
func (s *Memory) Create(ctx context.Context, link *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.links {
		if existing.ProfileUserID == link.ProfileUserID && existing.URL == link.URL {
			return ErrDuplicate
		}
	}
	s.links[link.ID] = *link
	return nil
}

func (s *Memory) Save(ctx context.Context, link *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.ID] = *link
	return nil
}

func (s *Memory) FindByID(ctx context.Context, linkID id.LinkID) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, ErrNotFound
	}
	return &link, nil
}

// ListVisibleByProfile returns the profile's non-hidden links in platform
// registration order, then oldest first within a platform.
func (s *Memory) ListVisibleByProfile(ctx context.Context, profileUserID id.UserID) ([]*models.Link, error) {
	return s.listByProfile(profileUserID, false), nil
}

// ListHiddenByProfile returns links suppressed by the report threshold, for
// the moderation surface.
func (s *Memory) ListHiddenByProfile(ctx context.Context, profileUserID id.UserID) ([]*models.Link, error) {
	return s.listByProfile(profileUserID, true), nil
}

func (s *Memory) listByProfile(profileUserID id.UserID, hidden bool) []*models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Link
	for _, link := range s.links {
		if link.ProfileUserID != profileUserID || link.Hidden != hidden {
			continue
		}
		l := link
		result = append(result, &l)
	}
	sortLinks(result)
	return result
}

func sortLinks(links []*models.Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Platform != links[j].Platform {
			return links[i].Platform.Order() < links[j].Platform.Order()
		}
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.Before(links[j].CreatedAt)
		}
		return links[i].ID.String() < links[j].ID.String()
	})
}

// AddVote records a vote of the given kind and bumps the matching counter.
// It returns counted=false without touching the counters when the actor has
// already cast this kind of vote on the link. The returned link reflects the
// post-vote counters.
func (s *Memory) AddVote(ctx context.Context, linkID id.LinkID, actor id.UserID, kind models.VoteKind, now time.Time) (*models.Link, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, false, ErrNotFound
	}
	key := voteKey{link: linkID, actor: actor, kind: kind}
	if _, dup := s.votes[key]; dup {
		return &link, false, nil
	}
	s.votes[key] = struct{}{}
	switch kind {
	case models.VoteCorroborate:
		link.VerifyCount++
	case models.VoteReport:
		link.ReportCount++
	}
	link.UpdatedAt = now
	s.links[linkID] = link
	return &link, true, nil
}

// SetFlags raises the verified and hidden flags. Flags only ever go from
// false to true here; threshold crossings are not reversible.
func (s *Memory) SetFlags(ctx context.Context, linkID id.LinkID, verified, hidden bool, now time.Time) (*models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, ErrNotFound
	}
	changed := false
	if verified && !link.Verified {
		link.Verified = true
		changed = true
	}
	if hidden && !link.Hidden {
		link.Hidden = true
		changed = true
	}
	if changed {
		link.UpdatedAt = now
		s.links[linkID] = link
	}
	return &link, nil
}
