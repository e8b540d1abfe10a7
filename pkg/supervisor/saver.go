package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/ports"
)

// saver writes status snapshots to a store from its own goroutine. It holds one
// pending snapshot: a newer one replaces it before it is written.
type saver struct {
	store  ports.StatusStore
	hostID string
	logger *slog.Logger

	mu      sync.Mutex
	pending *domain.Status
	closed  bool

	wake     chan struct{}
	finished chan struct{}
}

func newSaver(store ports.StatusStore, hostID string, logger *slog.Logger) *saver {
	sv := &saver{
		store:    store,
		hostID:   hostID,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	go sv.run()
	return sv
}

// save queues st. It never blocks on the store.
func (sv *saver) save(st domain.Status) {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	sv.pending = &st
	sv.mu.Unlock()

	select {
	case sv.wake <- struct{}{}:
	default:
	}
}

// close writes the last pending snapshot and stops the goroutine.
func (sv *saver) close(ctx context.Context) error {
	sv.mu.Lock()
	if !sv.closed {
		sv.closed = true
		select {
		case sv.wake <- struct{}{}:
		default:
		}
	}
	sv.mu.Unlock()

	select {
	case <-sv.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sv *saver) run() {
	defer close(sv.finished)
	for {
		sv.mu.Lock()
		for sv.pending == nil {
			if sv.closed {
				sv.mu.Unlock()
				return
			}
			sv.mu.Unlock()
			<-sv.wake
			sv.mu.Lock()
		}
		st := *sv.pending
		sv.pending = nil
		sv.mu.Unlock()

		sv.write(st)
	}
}

func (sv *saver) write(st domain.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := sv.store.Save(ctx, st); err != nil {
		sv.logger.Warn("Failed to save status", "host_id", sv.hostID, "err", err)
	}
}
