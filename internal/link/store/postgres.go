package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"goodcompany/internal/link/models"
	id "goodcompany/pkg/domain"
)

// DBTX lets the store run over either *sql.DB or a *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists links and their per-actor votes in PostgreSQL. Vote
// deduplication rides on the link_votes primary key; the counter bump only
// runs when the vote row actually inserted, so the check and the increment
// are atomic without an explicit transaction.
type Postgres struct {
	db DBTX
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

const linkColumns = `
	id, profile_user_id, added_by_user_id, platform, url,
	is_verified, verify_count, report_count, hidden, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, link *models.Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO social_media_links (
			id, profile_user_id, added_by_user_id, platform, url,
			is_verified, verify_count, report_count, hidden, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.UUID(link.ID), uuid.UUID(link.ProfileUserID), uuid.UUID(link.AddedByUserID),
		string(link.Platform), link.URL,
		link.Verified, link.VerifyCount, link.ReportCount, link.Hidden,
		link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicate
		}
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, link *models.Link) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE social_media_links
		SET is_verified = $2, verify_count = $3, report_count = $4,
		    hidden = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(link.ID),
		link.Verified, link.VerifyCount, link.ReportCount, link.Hidden,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save link: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, linkID id.LinkID) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM social_media_links WHERE id = $1`,
		uuid.UUID(linkID),
	)
	link, err := scanLink(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	return link, nil
}

func (s *Postgres) ListVisibleByProfile(ctx context.Context, profileUserID id.UserID) ([]*models.Link, error) {
	return s.listByProfile(ctx, profileUserID, false)
}

func (s *Postgres) ListHiddenByProfile(ctx context.Context, profileUserID id.UserID) ([]*models.Link, error) {
	return s.listByProfile(ctx, profileUserID, true)
}

func (s *Postgres) listByProfile(ctx context.Context, profileUserID id.UserID, hidden bool) ([]*models.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM social_media_links
		WHERE profile_user_id = $1 AND hidden = $2
		ORDER BY created_at, id`,
		uuid.UUID(profileUserID), hidden,
	)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var result []*models.Link
	for rows.Next() {
		link, err := scanLink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Platform ordering is registration order, not lexicographic, so it is
	// applied here rather than in SQL.
	sortLinks(result)
	return result, nil
}

// AddVote inserts a (link, actor, kind) vote row and bumps the counter in one
// statement. ON CONFLICT DO NOTHING plus the rows-affected check makes a
// repeat vote a no-op.
func (s *Postgres) AddVote(ctx context.Context, linkID id.LinkID, actor id.UserID, kind models.VoteKind, now time.Time) (*models.Link, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO link_votes (link_id, actor_user_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (link_id, actor_user_id, kind) DO NOTHING`,
		uuid.UUID(linkID), uuid.UUID(actor), string(kind), now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("add link vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("add link vote: %w", err)
	}
	if affected == 0 {
		link, err := s.FindByID(ctx, linkID)
		return link, false, err
	}

	column := "verify_count"
	if kind == models.VoteReport {
		column = "report_count"
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE social_media_links
		SET `+column+` = `+column+` + 1, updated_at = $2
		WHERE id = $1
		RETURNING `+linkColumns,
		uuid.UUID(linkID), now,
	)
	link, err := scanLink(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("bump link counter: %w", err)
	}
	return link, true, nil
}

// SetFlags raises the verified and hidden flags; it never lowers them.
func (s *Postgres) SetFlags(ctx context.Context, linkID id.LinkID, verified, hidden bool, now time.Time) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE social_media_links
		SET is_verified = is_verified OR $2,
		    hidden = hidden OR $3,
		    updated_at = CASE
		        WHEN (is_verified OR $2) <> is_verified OR (hidden OR $3) <> hidden
		        THEN $4 ELSE updated_at
		    END
		WHERE id = $1
		RETURNING `+linkColumns,
		uuid.UUID(linkID), verified, hidden, now,
	)
	link, err := scanLink(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set link flags: %w", err)
	}
	return link, nil
}

func scanLink(scan func(dest ...any) error) (*models.Link, error) {
	var (
		link     models.Link
		linkID   uuid.UUID
		profile  uuid.UUID
		addedBy  uuid.UUID
		platform string
	)
	err := scan(
		&linkID, &profile, &addedBy, &platform, &link.URL,
		&link.Verified, &link.VerifyCount, &link.ReportCount, &link.Hidden,
		&link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.ID = id.LinkID(linkID)
	link.ProfileUserID = id.UserID(profile)
	link.AddedByUserID = id.UserID(addedBy)
	link.Platform = id.Platform(platform)
	return &link, nil
}
