package interfaces

import (
	"context"
	"time"
)

// SyncLockRepository is the cross-process mutex backing the sync pipeline.
// The row-based implementation supports stale takeover; the advisory-lock
// fallback is session scoped and has no staleness recovery.
type SyncLockRepository interface {
	// TryAcquire returns true when the caller now holds the lock: the row
	// was free, unheld, or its heartbeat was older than staleThreshold.
	TryAcquire(ctx context.Context, lockName, jobID string, staleThreshold time.Duration) (bool, error)

	// Heartbeat refreshes the holder's timestamp. Returns false when the
	// lock is no longer held by jobID.
	Heartbeat(ctx context.Context, lockName, jobID string) (bool, error)

	// Release clears the lock only when held by jobID; releasing a lock you
	// don't hold is a no-op returning false.
	Release(ctx context.Context, lockName, jobID string) (bool, error)
}
