package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// Policy is the backpressure policy of a Channel.
type Policy struct {
	capacity int
}

// Unbounded never suspends the sender.
func Unbounded() Policy {
	return Policy{}
}

// Bounded suspends the sender while n messages are pending. n below 1 is treated as 1.
func Bounded(n int) Policy {
	if n < 1 {
		n = 1
	}
	return Policy{capacity: n}
}

// IsBounded reports whether senders may be suspended.
func (p Policy) IsBounded() bool {
	return p.capacity > 0
}

// Capacity returns the number of pending messages allowed, or 0 when unbounded.
func (p Policy) Capacity() int {
	return p.capacity
}

func (p Policy) String() string {
	if !p.IsBounded() {
		return "unbounded"
	}
	return fmt.Sprintf("bounded:%d", p.capacity)
}

// ParsePolicy reads "unbounded" (or "") and "bounded:N".
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "unbounded" {
		return Unbounded(), nil
	}
	raw, ok := strings.CutPrefix(s, "bounded:")
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return Policy{}, fmt.Errorf("%w: capacity must be a positive integer, got %q", ErrInvalidPolicy, raw)
	}
	return Bounded(n), nil
}
