package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates ownership of a host ID across processes sharing a
// status store.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done. A ttl of zero
	// means the lock never expires on its own.
	// The returned UnlockFunc MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
