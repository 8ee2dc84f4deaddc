package adapters

import (
	"context"
	"sync"

	"goodcompany/internal/verification/models"
	"goodcompany/internal/verification/ports"
)

// PendingReview is one queued submission awaiting a human verdict.
type PendingReview struct {
	ID       int64
	Document models.ArtifactRef
	Selfie   models.ArtifactRef

	verdict chan ports.Decision
}

// ReviewQueue is a manual-review decider. Decide parks the submission on a
// queue and blocks until a reviewer resolves it or the engine's deadline
// fires; the engine converts the deadline into a rejected-with-timeout
// outcome, so a slow reviewer never wedges a user in Verifying.
type ReviewQueue struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]*PendingReview
}

func NewReviewQueue() *ReviewQueue {
	return &ReviewQueue{pending: make(map[int64]*PendingReview)}
}

func (q *ReviewQueue) Decide(ctx context.Context, document, selfie models.ArtifactRef) (ports.Decision, error) {
	review := &PendingReview{
		Document: document,
		Selfie:   selfie,
		verdict:  make(chan ports.Decision, 1),
	}

	q.mu.Lock()
	q.nextID++
	review.ID = q.nextID
	q.pending[review.ID] = review
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.pending, review.ID)
		q.mu.Unlock()
	}()

	select {
	case decision := <-review.verdict:
		return decision, nil
	case <-ctx.Done():
		return ports.Decision{}, ctx.Err()
	}
}

// Pending snapshots the queue for the reviewer surface.
func (q *ReviewQueue) Pending() []*PendingReview {
	q.mu.Lock()
	defer q.mu.Unlock()
	reviews := make([]*PendingReview, 0, len(q.pending))
	for _, review := range q.pending {
		reviews = append(reviews, review)
	}
	return reviews
}

// Resolve delivers a reviewer's verdict. It reports false when the review is
// no longer pending (already resolved or timed out).
func (q *ReviewQueue) Resolve(reviewID int64, decision ports.Decision) bool {
	q.mu.Lock()
	review, ok := q.pending[reviewID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case review.verdict <- decision:
		return true
	default:
		return false
	}
}
