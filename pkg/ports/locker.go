package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a run across processes sharing a
// RunStore. The session manager takes it around every load-advance-save.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx ends. The lock expires after ttl
	// if the holder never unlocks it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
