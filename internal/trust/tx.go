package trust

import (
	"context"
	"sync"
	"time"

	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Tx is the transactional boundary for writes that read and then update a
// profile's trust state. Writes for the same profile are serialized so the
// score recomputed inside fn always reflects the write that triggered it.
type Tx interface {
	RunInTx(ctx context.Context, userID id.UserID, fn func(s Stores) error) error
}

// Operations are distributed across shards by a hash of the profile's user
// ID, so unrelated profiles do not contend on a single global lock.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// shardedTx serializes per-profile writes over the in-memory stores using
// sharded mutexes.
type shardedTx struct {
	shards  [numShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewShardedTx returns a Tx over the given store bundle. Pass zero timeout
// for the default.
func NewShardedTx(stores Stores, timeout time.Duration) Tx {
	return &shardedTx{stores: stores, timeout: timeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, userID id.UserID, fn func(s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := selectShard(userID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock; a queued caller may have waited
	// past its deadline.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.stores)
}

func selectShard(userID id.UserID) int {
	return int(fnvHash(userID.String()) % numShards)
}

// fnvHash is FNV-1a, chosen for its distribution over UUID strings.
func fnvHash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
