package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/supervisor"
)

// SSE event names.
const (
	EventState       = "state"
	EventMessage     = "message"
	EventDiagnostics = "diagnostics"
)

const streamBuffer = 64

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// StreamManager fans host events out to SSE clients.
// A client whose buffer is full loses events instead of slowing the host down.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a client. The returned function unregisters it and closes
// the channel.
func (sm *StreamManager) Subscribe() (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, streamBuffer)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Len returns the number of connected clients.
func (sm *StreamManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast encodes v as JSON and sends it to every client.
func (sm *StreamManager) Broadcast(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Error("SSE: failed to encode event", "event", name, "err", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping event", "event", name)
		}
	}
}

// Hooks feeds the manager from a supervisor.
func (sm *StreamManager) Hooks() supervisor.Hooks {
	return supervisor.Hooks{
		OnStateChange: func(_ context.Context, c domain.StateChange) {
			sm.Broadcast(EventState, c)
		},
		OnMessage: func(_ context.Context, m domain.SessionMessage) {
			sm.Broadcast(EventMessage, m)
		},
		OnDiagnostics: func(_ context.Context, diags []diagnostic.Error) {
			if diags == nil {
				diags = []diagnostic.Error{}
			}
			sm.Broadcast(EventDiagnostics, diags)
		},
	}
}

// keepAlive is how often an idle stream sends a comment line.
var keepAlive = 15 * time.Second
