package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/livehost/pkg/ports"
)

// Locker implements ports.DistributedLocker within a single process.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		held: make(map[string]chan struct{}),
	}
}

// Lock blocks until key is free or ctx is done. A positive ttl releases the lock
// automatically when it elapses.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			mine := make(chan struct{})
			l.held[key] = mine
			l.mu.Unlock()

			var once sync.Once
			release := func() {
				once.Do(func() {
					l.mu.Lock()
					if l.held[key] == mine {
						delete(l.held, key)
					}
					l.mu.Unlock()
					close(mine)
				})
			}
			if ttl > 0 {
				time.AfterFunc(ttl, release)
			}
			return func(ctx context.Context) error {
				release()
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-released:
		}
	}
}
