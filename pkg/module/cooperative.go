package module

import (
	"context"
	"sync"
	"time"
)

// DefaultTick is how often Loop checks for cancellation.
const DefaultTick = 100 * time.Millisecond

// Pausable is an embeddable advisory pause flag. It satisfies the Pause/Resume half
// of Module; the embedding type's Run consults Paused or WaitResumed.
type Pausable struct {
	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
}

// Pause marks the module as paused.
func (p *Pausable) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	p.resumed = make(chan struct{})
}

// Resume clears the paused mark and wakes WaitResumed callers.
func (p *Pausable) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.resumed)
}

// Paused reports the current mark.
func (p *Pausable) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// WaitResumed blocks while paused. It returns ctx.Err() if ctx ends first.
func (p *Pausable) WaitResumed(ctx context.Context) error {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return ctx.Err()
	}
	ch := p.resumed
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop calls fn every tick until ctx is done or fn returns an error. Ticks that
// happen while p is paused are skipped; p may be nil. A tick of zero uses
// DefaultTick. Cancellation is reported as a nil return.
func Loop(ctx context.Context, tick time.Duration, p *Pausable, fn func(ctx context.Context) error) error {
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p != nil && p.Paused() {
				continue
			}
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
