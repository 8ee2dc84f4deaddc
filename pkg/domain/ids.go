package domain

import (
	"github.com/google/uuid"

	dErrors "goodcompany/pkg/domain-errors"
)

// Typed identifiers prevent accidental cross-assignment between entity IDs
// (e.g. passing a LinkID where a UserID is expected). Construct via the
// Parse* functions at trust boundaries; direct casting bypasses validation.
type (
	// UserID identifies a profile owner / actor.
	UserID uuid.UUID
	// EndorsementID identifies an endorsement edge.
	EndorsementID uuid.UUID
	// LinkID identifies a social media link.
	LinkID uuid.UUID
	// VerificationID identifies a verification record.
	VerificationID uuid.UUID
)

// ParseUserID validates and returns a UserID.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseEndorsementID validates and returns an EndorsementID.
func ParseEndorsementID(s string) (EndorsementID, error) {
	u, err := parseUUID(s, "endorsement id")
	return EndorsementID(u), err
}

// ParseLinkID validates and returns a LinkID.
func ParseLinkID(s string) (LinkID, error) {
	u, err := parseUUID(s, "link id")
	return LinkID(u), err
}

// ParseVerificationID validates and returns a VerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification id")
	return VerificationID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// NewUserID returns a fresh random UserID. Intended for tests and seeding;
// production user IDs arrive from the auth collaborator.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEndorsementID returns a fresh random EndorsementID.
func NewEndorsementID() EndorsementID { return EndorsementID(uuid.New()) }

// NewLinkID returns a fresh random LinkID.
func NewLinkID() LinkID { return LinkID(uuid.New()) }

// NewVerificationID returns a fresh random VerificationID.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id EndorsementID) String() string  { return uuid.UUID(id).String() }
func (id LinkID) String() string         { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EndorsementID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id LinkID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// The defined types do not inherit uuid.UUID's text marshaling, and without
// it encoding/json renders an ID as a 16-element byte array. Delegate so IDs
// always travel as canonical UUID strings.
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id EndorsementID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id LinkID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id VerificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EndorsementID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LinkID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VerificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
