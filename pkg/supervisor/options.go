package supervisor

import (
	"log/slog"
	"time"

	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultStopTimeout bounds how long Stop and HotSwap wait for Run to return.
const DefaultStopTimeout = 5 * time.Second

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithLogger configures the logger for transitions and faults.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStopTimeout sets the stuck-detection deadline. Zero waits forever.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d >= 0 {
			s.stopTimeout = d
		}
	}
}

// WithPolicy sets the backpressure policy of every session channel.
func WithPolicy(p channel.Policy) Option {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithMetrics registers the supervisor's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Supervisor) {
		s.metrics = newMetrics(reg)
	}
}

// WithStatusStore saves a status snapshot under hostID after every transition.
// Writes happen in the background; a slow store may skip intermediate snapshots
// but always ends on the latest one.
func WithStatusStore(store ports.StatusStore, hostID string) Option {
	return func(s *Supervisor) {
		s.store = store
		s.hostID = hostID
	}
}

// WithFatalKinds overrides which diagnostic kinds block a load.
func WithFatalKinds(kinds ...diagnostic.Kind) Option {
	return func(s *Supervisor) {
		s.fatalKinds = kinds
	}
}
