package main

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	endorsementstore "goodcompany/internal/endorsement/store"
	linkstore "goodcompany/internal/link/store"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/trust"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

const defaultTrustTxTimeout = 5 * time.Second

// trustPostgresTx runs each unit of work inside a database transaction,
// serialized per profile with a transaction-scoped advisory lock. Plain READ
// COMMITTED is not enough: two writers for the same profile would each read a
// snapshot missing the other's uncommitted rows and the second commit would
// overwrite the recomputed score.
type trustPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newTrustPostgresTx(db *sql.DB) *trustPostgresTx {
	return &trustPostgresTx{db: db}
}

// profileLockKey hashes the user ID into the advisory lock keyspace.
func profileLockKey(userID id.UserID) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID.String()))
	return int64(h.Sum64())
}

func (t *trustPostgresTx) RunInTx(ctx context.Context, userID id.UserID, fn func(s trust.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTrustTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Held until commit or rollback.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", profileLockKey(userID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "acquire profile lock")
	}

	stores := trust.Stores{
		Profiles:      profilestore.NewPostgresTx(tx),
		Endorsements:  endorsementstore.NewPostgresTx(tx),
		Verifications: verificationstore.NewPostgresTx(tx),
		Links:         linkstore.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}

	return tx.Commit()
}
