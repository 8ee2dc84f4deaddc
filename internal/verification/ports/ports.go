// Package ports defines the verification module's external collaborator
// interfaces. Interfaces live here when consumed by both the service and the
// adapter implementations.
package ports

import (
	"context"

	"goodcompany/internal/verification/models"
	"goodcompany/pkg/platform/audit"
)

// Decision is a decider's verdict on a submission.
type Decision struct {
	Approved   bool
	ReasonCode models.ReasonCode
}

// Decider is the external authority that approves or rejects a verification
// submission: a manual review queue or an automated matcher. Decide may block
// until the verdict is in; the engine bounds the wait with its own deadline,
// so implementations must honor ctx cancellation.
type Decider interface {
	Decide(ctx context.Context, document, selfie models.ArtifactRef) (Decision, error)
}

// ArtifactStore persists uploaded artifact bytes and returns an opaque
// reference. The engine never reads artifacts back; only the decider does.
type ArtifactStore interface {
	Store(ctx context.Context, content []byte, mimeType string) (models.ArtifactRef, error)
}

// AuditPublisher emits audit events for verification state changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
