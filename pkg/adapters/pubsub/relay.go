// Package pubsub republishes supervisor events on a watermill publisher, so any
// broker watermill supports (or the in-process gochannel) can fan them out.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aretw0/livehost/internal/ids"
	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/supervisor"
)

// DefaultPrefix is prepended to every published topic.
const DefaultPrefix = "livehost."

// Topics for supervisor events, relative to the prefix. Module messages use their own
// topic name.
const (
	TopicState       = "state"
	TopicDiagnostics = "diagnostics"
)

// Metadata keys set on module messages.
const (
	MetaSession    = "session_id"
	MetaModule     = "module"
	MetaGeneration = "generation"
	MetaSeq        = "seq"
	MetaTopic      = "topic"
)

// Relay forwards hooks to a watermill publisher.
type Relay struct {
	pub    message.Publisher
	prefix string
	logger *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(r *Relay) { r.prefix = prefix }
}

// WithLogger sets the logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRelay creates a relay publishing on pub.
func NewRelay(pub message.Publisher, opts ...Option) *Relay {
	r := &Relay{pub: pub, prefix: DefaultPrefix, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Topic returns the full topic name for a relative one.
func (r *Relay) Topic(name string) string {
	return r.prefix + name
}

// Hooks returns the supervisor hooks that feed the relay.
func (r *Relay) Hooks() supervisor.Hooks {
	return supervisor.Hooks{
		OnStateChange: r.onStateChange,
		OnMessage:     r.onMessage,
		OnDiagnostics: r.onDiagnostics,
	}
}

func (r *Relay) onMessage(ctx context.Context, m domain.SessionMessage) {
	msg := message.NewMessage(m.ID, []byte(m.Payload))
	msg.Metadata.Set(MetaSession, m.SessionID)
	msg.Metadata.Set(MetaModule, m.Module)
	msg.Metadata.Set(MetaGeneration, strconv.FormatUint(m.Generation, 10))
	msg.Metadata.Set(MetaSeq, strconv.FormatUint(m.Seq, 10))
	msg.Metadata.Set(MetaTopic, m.Topic)
	r.publish(ctx, m.Topic, msg)
}

func (r *Relay) onStateChange(ctx context.Context, c domain.StateChange) {
	r.publishJSON(ctx, TopicState, c)
}

func (r *Relay) onDiagnostics(ctx context.Context, diags []diagnostic.Error) {
	r.publishJSON(ctx, TopicDiagnostics, diags)
}

func (r *Relay) publishJSON(ctx context.Context, topic string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to encode event", "topic", topic, "err", err)
		return
	}
	r.publish(ctx, topic, message.NewMessage(ids.New(), body))
}

func (r *Relay) publish(ctx context.Context, topic string, msg *message.Message) {
	msg.SetContext(ctx)
	if err := r.pub.Publish(r.Topic(topic), msg); err != nil {
		r.logger.Warn("Failed to publish event", "topic", r.Topic(topic), "uuid", msg.UUID, "err", err)
	}
}
