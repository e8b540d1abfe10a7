package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/livehost/internal/ids"
)

var (
	// ErrChannelClosed is returned by Send after Close, and by Receive once a closed
	// channel has been drained.
	ErrChannelClosed = errors.New("channel closed")

	// ErrTopicRequired is returned when a message is sent without a topic.
	ErrTopicRequired = errors.New("topic is required")

	// ErrInvalidPolicy is returned by ParsePolicy for malformed input.
	ErrInvalidPolicy = errors.New("invalid backpressure policy")
)

// Sender is the module-side view of a Channel.
type Sender interface {
	// Send enqueues a message. It only blocks when the channel is bounded and full.
	Send(ctx context.Context, topic, payload string) error
}

// Message is one unit of module output.
type Message struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"`
	Topic   string    `json:"topic"`
	Payload string    `json:"payload"`
	Time    time.Time `json:"time"`
}

// Channel is a FIFO message queue between one module and its host.
// Safe for concurrent use.
type Channel struct {
	policy Policy

	mu      sync.Mutex
	queue   []Message
	seq     uint64
	closed  bool
	changed chan struct{} // closed and replaced on every mutation
}

// New creates an open channel.
func New(policy Policy) *Channel {
	return &Channel{
		policy:  policy,
		changed: make(chan struct{}),
	}
}

var _ Sender = (*Channel)(nil)

// Policy returns the backpressure policy.
func (c *Channel) Policy() Policy {
	return c.policy
}

// notify wakes every waiter. Caller holds c.mu.
func (c *Channel) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// wait releases c.mu until the channel changes or ctx is done, then re-acquires it.
func (c *Channel) wait(ctx context.Context) error {
	ch := c.changed
	c.mu.Unlock()
	defer c.mu.Lock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send enqueues (topic, payload). Messages from one sender are received in send order.
func (c *Channel) Send(ctx context.Context, topic, payload string) error {
	if topic == "" {
		return ErrTopicRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.closed {
			return ErrChannelClosed
		}
		if !c.policy.IsBounded() || len(c.queue) < c.policy.Capacity() {
			break
		}
		if err := c.wait(ctx); err != nil {
			return err
		}
	}

	c.seq++
	c.queue = append(c.queue, Message{
		ID:      ids.New(),
		Seq:     c.seq,
		Topic:   topic,
		Payload: payload,
		Time:    time.Now(),
	})
	c.notify()
	return nil
}

// Receive returns the oldest pending message, waiting for one if necessary.
// After Close it keeps returning pending messages, then ErrChannelClosed.
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) == 0 {
		if c.closed {
			return Message{}, ErrChannelClosed
		}
		if err := c.wait(ctx); err != nil {
			return Message{}, err
		}
	}

	m := c.queue[0]
	c.queue[0] = Message{}
	c.queue = c.queue[1:]
	c.notify()
	return m, nil
}

// Close stops accepting messages. Pending messages stay receivable. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.notify()
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of pending messages.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Endpoint returns a send-only view to hand to a module.
func (c *Channel) Endpoint() Sender {
	return endpoint{c: c}
}

type endpoint struct {
	c *Channel
}

func (e endpoint) Send(ctx context.Context, topic, payload string) error {
	return e.c.Send(ctx, topic, payload)
}
