package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goodcompany/internal/profile/models"
	id "goodcompany/pkg/domain"
)

// DBTX lets the store run over either *sql.DB or a *sql.Tx supplied by the
// per-profile transaction boundary.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists profiles in PostgreSQL.
type Postgres struct {
	db DBTX
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

func (s *Postgres) Save(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, name, age, location, bio, avatar_url,
			is_verified, good_company_score, endorsement_count,
			created_at, updated_at, deleted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			location = EXCLUDED.location,
			bio = EXCLUDED.bio,
			avatar_url = EXCLUDED.avatar_url,
			is_verified = EXCLUDED.is_verified,
			good_company_score = EXCLUDED.good_company_score,
			endorsement_count = EXCLUDED.endorsement_count,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at`,
		uuid.UUID(profile.UserID), profile.Name, nullInt(profile.Age),
		nullString(profile.Location), nullString(profile.Bio), nullString(profile.AvatarURL),
		profile.IsVerified, profile.GoodCompanyScore, profile.EndorsementCount,
		profile.CreatedAt, profile.UpdatedAt, nullTime(profile.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, age, location, bio, avatar_url,
		       is_verified, good_company_score, endorsement_count,
		       created_at, updated_at, deleted_at
		FROM profiles WHERE user_id = $1`,
		uuid.UUID(userID),
	)
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		profile   models.Profile
		userID    uuid.UUID
		age       sql.NullInt64
		location  sql.NullString
		bio       sql.NullString
		avatarURL sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&userID, &profile.Name, &age, &location, &bio, &avatarURL,
		&profile.IsVerified, &profile.GoodCompanyScore, &profile.EndorsementCount,
		&profile.CreatedAt, &profile.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	profile.UserID = id.UserID(userID)
	if age.Valid {
		v := int(age.Int64)
		profile.Age = &v
	}
	profile.Location = location.String
	profile.Bio = bio.String
	profile.AvatarURL = avatarURL.String
	if deletedAt.Valid {
		t := deletedAt.Time
		profile.DeletedAt = &t
	}
	return &profile, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
