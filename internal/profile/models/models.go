package models

import (
	"time"

	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Profile is the per-user record the engines read and mutate. The derived
// fields (IsVerified, GoodCompanyScore, EndorsementCount) are owned by the
// engines: they are recomputed on trust-relevant writes, never hand-edited.
type Profile struct {
	UserID           id.UserID `json:"user_id"`
	Name             string    `json:"name"`
	Age              *int      `json:"age,omitempty"`
	Location         string    `json:"location,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	IsVerified       bool      `json:"is_verified"`
	GoodCompanyScore float64   `json:"good_company_score"`
	EndorsementCount int       `json:"endorsement_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	// DeletedAt marks a soft delete. Profiles are never hard-deleted while
	// endorsements or links still reference them.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// New creates a Profile with domain invariant validation. Score and counters
// start at zero; the engines fill them in.
func New(userID id.UserID, name string, now time.Time) (*Profile, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile user id cannot be nil")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile name cannot be empty")
	}
	return &Profile{
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deleted reports whether the profile has been soft-deleted.
func (p *Profile) Deleted() bool {
	return p.DeletedAt != nil
}
