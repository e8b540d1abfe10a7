package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
)

// Hooks observe a supervisor. Any field may be nil.
//
// All hooks of all subscribers run on one dispatcher goroutine, in publication
// order. A hook must not call a control operation synchronously: the operation may
// be waiting for this very delivery.
type Hooks struct {
	OnStateChange func(context.Context, domain.StateChange)
	OnMessage     func(context.Context, domain.SessionMessage)
	OnDiagnostics func(context.Context, []diagnostic.Error)
}

type event struct {
	change *domain.StateChange
	msg    *domain.SessionMessage
	diags  []diagnostic.Error
	isDiag bool
	done   chan struct{} // closed once delivered, may be nil
}

type subscriber struct {
	id    uint64
	hooks Hooks
}

// dispatcher delivers events to subscribers from a single goroutine.
type dispatcher struct {
	logger *slog.Logger

	mu     sync.Mutex
	queue  []event
	subs   []subscriber
	nextID uint64
	closed bool

	wake     chan struct{}
	finished chan struct{}
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		logger:   logger,
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) subscribe(h Hooks) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscriber{id: id, hooks: h})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// publish enqueues ev. Events published after close are dropped.
func (d *dispatcher) publish(ev event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		if ev.done != nil {
			close(ev.done)
		}
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// flush waits until everything published so far has been delivered.
func (d *dispatcher) flush(ctx context.Context) error {
	done := make(chan struct{})
	d.publish(event{done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting events and waits for the queue to drain.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	d.mu.Unlock()

	select {
	case <-d.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) run() {
	defer close(d.finished)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 {
			if d.closed {
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}
		ev := d.queue[0]
		d.queue[0] = event{}
		d.queue = d.queue[1:]
		subs := append([]subscriber(nil), d.subs...)
		d.mu.Unlock()

		for _, s := range subs {
			d.deliver(s.hooks, ev)
		}
		if ev.done != nil {
			close(ev.done)
		}
	}
}

func (d *dispatcher) deliver(h Hooks, ev event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Hook panicked", "panic", r)
		}
	}()

	ctx := context.Background()
	switch {
	case ev.change != nil && h.OnStateChange != nil:
		h.OnStateChange(ctx, *ev.change)
	case ev.msg != nil && h.OnMessage != nil:
		h.OnMessage(ctx, *ev.msg)
	case ev.isDiag && h.OnDiagnostics != nil:
		h.OnDiagnostics(ctx, ev.diags)
	}
}
