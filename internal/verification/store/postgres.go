package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// DBTX lets the store run over either *sql.DB or a *sql.Tx supplied by the
// per-profile transaction boundary.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists verification records in PostgreSQL.
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

const recordColumns = `
	id, user_id, status, document_ref, selfie_ref, reason_code,
	submitted_at, decided_at, updated_at`

func (s *Postgres) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("verification record is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_records (
			id, user_id, status, document_ref, selfie_ref, reason_code,
			submitted_at, decided_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			document_ref = EXCLUDED.document_ref,
			selfie_ref = EXCLUDED.selfie_ref,
			reason_code = EXCLUDED.reason_code,
			decided_at = EXCLUDED.decided_at,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(record.ID), uuid.UUID(record.UserID), string(record.Status),
		nullString(string(record.DocumentRef)), nullString(string(record.SelfieRef)),
		nullString(string(record.ReasonCode)),
		record.SubmittedAt, nullTime(record.DecidedAt), record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *Postgres) FindActiveByUser(ctx context.Context, userID id.UserID) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM verification_records
		WHERE user_id = $1 AND status NOT IN ('verified', 'rejected')`,
		uuid.UUID(userID),
	)
	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active verification: %w", err)
	}
	return record, nil
}

func (s *Postgres) FindLatestByUser(ctx context.Context, userID id.UserID) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM verification_records
		WHERE user_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT 1`,
		uuid.UUID(userID),
	)
	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find latest verification: %w", err)
	}
	return record, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM verification_records
		WHERE user_id = $1
		ORDER BY submitted_at DESC, id DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list verification records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// TransitionStatus is an atomic compare-and-set on a record's status,
// implemented as a conditional UPDATE so concurrent decision requests cannot
// both pass the guard.
func (s *Postgres) TransitionStatus(ctx context.Context, recordID id.VerificationID, from, to models.Status, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE verification_records
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		uuid.UUID(recordID), string(from), string(to), now,
	)
	if err != nil {
		return fmt.Errorf("transition verification status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition verification status: %w", err)
	}
	if affected == 0 {
		if _, err := s.findByID(ctx, recordID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return dErrors.New(dErrors.CodeConflict, "verification is no longer in state "+from.String())
	}
	return nil
}

func (s *Postgres) findByID(ctx context.Context, recordID id.VerificationID) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM verification_records WHERE id = $1`,
		uuid.UUID(recordID),
	)
	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var (
		record      models.Record
		recordID    uuid.UUID
		userID      uuid.UUID
		status      string
		documentRef sql.NullString
		selfieRef   sql.NullString
		reasonCode  sql.NullString
		decidedAt   sql.NullTime
	)
	err := scan(
		&recordID, &userID, &status, &documentRef, &selfieRef, &reasonCode,
		&record.SubmittedAt, &decidedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.VerificationID(recordID)
	record.UserID = id.UserID(userID)
	record.Status = models.Status(status)
	record.DocumentRef = models.ArtifactRef(documentRef.String)
	record.SelfieRef = models.ArtifactRef(selfieRef.String)
	record.ReasonCode = models.ReasonCode(reasonCode.String)
	if decidedAt.Valid {
		t := decidedAt.Time
		record.DecidedAt = &t
	}
	return &record, nil
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
