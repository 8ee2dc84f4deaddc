package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goodcompany/internal/endorsement/models"
	id "goodcompany/pkg/domain"
)

// DBTX lets the store run over either *sql.DB or a *sql.Tx supplied by the
// per-profile transaction boundary.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists endorsements in PostgreSQL.
type Postgres struct {
	db DBTX
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

const endorsementColumns = `
	id, endorser_id, endorsed_id, relationship_type, duration_months,
	endorsement_text, created_at, updated_at, retracted_at`

func (s *Postgres) Save(ctx context.Context, endorsement *models.Endorsement) error {
	if endorsement == nil {
		return fmt.Errorf("endorsement is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO endorsements (
			id, endorser_id, endorsed_id, relationship_type, duration_months,
			endorsement_text, created_at, updated_at, retracted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			relationship_type = EXCLUDED.relationship_type,
			duration_months = EXCLUDED.duration_months,
			endorsement_text = EXCLUDED.endorsement_text,
			updated_at = EXCLUDED.updated_at,
			retracted_at = EXCLUDED.retracted_at`,
		uuid.UUID(endorsement.ID), uuid.UUID(endorsement.EndorserID), uuid.UUID(endorsement.EndorsedID),
		endorsement.RelationshipType, endorsement.DurationMonths, nullString(endorsement.Text),
		endorsement.CreatedAt, endorsement.UpdatedAt, nullTime(endorsement.RetractedAt),
	)
	if err != nil {
		return fmt.Errorf("save endorsement: %w", err)
	}
	return nil
}

func (s *Postgres) FindActivePair(ctx context.Context, endorser, endorsed id.UserID) (*models.Endorsement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+endorsementColumns+`
		FROM endorsements
		WHERE endorser_id = $1 AND endorsed_id = $2 AND retracted_at IS NULL`,
		uuid.UUID(endorser), uuid.UUID(endorsed),
	)
	endorsement, err := scanEndorsement(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find endorsement pair: %w", err)
	}
	return endorsement, nil
}

func (s *Postgres) ListActiveByEndorsed(ctx context.Context, endorsed id.UserID) ([]*models.Endorsement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+endorsementColumns+`
		FROM endorsements
		WHERE endorsed_id = $1 AND retracted_at IS NULL
		ORDER BY created_at, id`,
		uuid.UUID(endorsed),
	)
	if err != nil {
		return nil, fmt.Errorf("list endorsements: %w", err)
	}
	defer rows.Close()

	var result []*models.Endorsement
	for rows.Next() {
		endorsement, err := scanEndorsement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan endorsement: %w", err)
		}
		result = append(result, endorsement)
	}
	return result, rows.Err()
}

func scanEndorsement(scan func(dest ...any) error) (*models.Endorsement, error) {
	var (
		endorsement models.Endorsement
		edgeID      uuid.UUID
		endorserID  uuid.UUID
		endorsedID  uuid.UUID
		text        sql.NullString
		retractedAt sql.NullTime
	)
	err := scan(
		&edgeID, &endorserID, &endorsedID, &endorsement.RelationshipType,
		&endorsement.DurationMonths, &text, &endorsement.CreatedAt,
		&endorsement.UpdatedAt, &retractedAt,
	)
	if err != nil {
		return nil, err
	}
	endorsement.ID = id.EndorsementID(edgeID)
	endorsement.EndorserID = id.UserID(endorserID)
	endorsement.EndorsedID = id.UserID(endorsedID)
	endorsement.Text = text.String
	if retractedAt.Valid {
		t := retractedAt.Time
		endorsement.RetractedAt = &t
	}
	return &endorsement, nil
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
