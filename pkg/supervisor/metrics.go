package supervisor

import (
	"errors"
	"time"

	"github.com/aretw0/livehost/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the supervisor collectors. A nil *metrics records nothing.
type metrics struct {
	transitions *prometheus.CounterVec
	messages    prometheus.Counter
	faults      prometheus.Counter
	stuck       prometheus.Counter
	duration    prometheus.Histogram
	state       *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livehost_transitions_total",
			Help: "Observable supervisor state transitions.",
		}, []string{"from", "to"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livehost_messages_total",
			Help: "Messages received from module channels.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livehost_faults_total",
			Help: "Sessions that ended with an error or panic.",
		}),
		stuck: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livehost_stuck_total",
			Help: "Sessions that ignored cancellation past the stop timeout.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livehost_session_duration_seconds",
			Help:    "Wall time of finished run sessions.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livehost_state",
			Help: "1 for the current supervisor state, 0 otherwise.",
		}, []string{"state"}),
	}

	m.transitions = register(reg, m.transitions)
	m.messages = register(reg, m.messages)
	m.faults = register(reg, m.faults)
	m.stuck = register(reg, m.stuck)
	m.duration = register(reg, m.duration)
	m.state = register(reg, m.state)
	return m
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) transition(from, to domain.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
	for _, s := range domain.States {
		v := 0.0
		if s == to {
			v = 1
		}
		m.state.WithLabelValues(string(s)).Set(v)
	}
}

func (m *metrics) message() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *metrics) fault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}

func (m *metrics) stuckSession() {
	if m == nil {
		return
	}
	m.stuck.Inc()
}

func (m *metrics) sessionEnded(started time.Time) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(started).Seconds())
}
