package adapters

import (
	"context"

	"goodcompany/internal/verification/models"
	"goodcompany/internal/verification/ports"
	dErrors "goodcompany/pkg/domain-errors"
)

// AutoMatcher is the automated decider. It stands in for a document/selfie
// matching pipeline: the engine only sees the port, so swapping in a real
// matcher changes wiring, not engine code.
type AutoMatcher struct{}

func NewAutoMatcher() *AutoMatcher {
	return &AutoMatcher{}
}

func (m *AutoMatcher) Decide(_ context.Context, document, selfie models.ArtifactRef) (ports.Decision, error) {
	if document == "" || selfie == "" {
		return ports.Decision{}, dErrors.New(dErrors.CodeInvariantViolation, "decision requires both artifacts")
	}
	return ports.Decision{Approved: true}, nil
}
