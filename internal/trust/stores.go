// Package trust holds the pieces shared by every write path that touches a
// profile's trust state: the store bundle those writes operate on, the
// per-profile transaction boundary that serializes them, and the score
// recomputation that runs inside it.
package trust

import (
	"context"
	"time"

	endorsementmodels "goodcompany/internal/endorsement/models"
	linkmodels "goodcompany/internal/link/models"
	profilemodels "goodcompany/internal/profile/models"
	verificationmodels "goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
)

// ProfileStore is the profile persistence surface the trust paths need.
type ProfileStore interface {
	Save(ctx context.Context, profile *profilemodels.Profile) error
	FindByID(ctx context.Context, userID id.UserID) (*profilemodels.Profile, error)
}

// EndorsementStore is the endorsement persistence surface.
type EndorsementStore interface {
	Save(ctx context.Context, endorsement *endorsementmodels.Endorsement) error
	FindActivePair(ctx context.Context, endorser, endorsed id.UserID) (*endorsementmodels.Endorsement, error)
	ListActiveByEndorsed(ctx context.Context, endorsed id.UserID) ([]*endorsementmodels.Endorsement, error)
}

// VerificationStore is the verification record persistence surface.
type VerificationStore interface {
	Save(ctx context.Context, record *verificationmodels.Record) error
	FindActiveByUser(ctx context.Context, userID id.UserID) (*verificationmodels.Record, error)
	FindLatestByUser(ctx context.Context, userID id.UserID) (*verificationmodels.Record, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*verificationmodels.Record, error)
	TransitionStatus(ctx context.Context, recordID id.VerificationID, from, to verificationmodels.Status, now time.Time) error
}

// LinkStore is the social link persistence surface.
type LinkStore interface {
	Create(ctx context.Context, link *linkmodels.Link) error
	Save(ctx context.Context, link *linkmodels.Link) error
	FindByID(ctx context.Context, linkID id.LinkID) (*linkmodels.Link, error)
	ListVisibleByProfile(ctx context.Context, profileUserID id.UserID) ([]*linkmodels.Link, error)
	ListHiddenByProfile(ctx context.Context, profileUserID id.UserID) ([]*linkmodels.Link, error)
	AddVote(ctx context.Context, linkID id.LinkID, actor id.UserID, kind linkmodels.VoteKind, now time.Time) (*linkmodels.Link, bool, error)
	SetFlags(ctx context.Context, linkID id.LinkID, verified, hidden bool, now time.Time) (*linkmodels.Link, error)
}

// Stores bundles the per-feature stores a trust transaction may touch. The
// transactional implementations rebind all of them to the same database
// transaction; the in-memory one hands back the shared maps.
type Stores struct {
	Profiles      ProfileStore
	Endorsements  EndorsementStore
	Verifications VerificationStore
	Links         LinkStore
}
