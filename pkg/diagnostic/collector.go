package diagnostic

import (
	"slices"
	"sync"
)

// Reporter receives diagnostics from a build pass.
type Reporter interface {
	Report(e Error)
}

// Collector holds the diagnostics of the latest build pass.
// Safe for concurrent use.
type Collector struct {
	mu         sync.RWMutex
	items      []Error
	dropped    int
	limit      int
	fatalKinds []Kind
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithLimit caps the number of records kept per pass. Extra records are counted
// as dropped. Zero means unlimited.
func WithLimit(n int) CollectorOption {
	return func(c *Collector) {
		c.limit = n
	}
}

// WithFatalKinds overrides which kinds block a module from running.
func WithFatalKinds(kinds ...Kind) CollectorOption {
	return func(c *Collector) {
		c.fatalKinds = slices.Clone(kinds)
	}
}

// NewCollector creates an empty collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		fatalKinds: slices.Clone(DefaultFatalKinds),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Reporter = (*Collector)(nil)

// Clear discards everything. Call it at the start of each build pass.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.dropped = 0
}

// Report appends one record to the current pass.
func (c *Collector) Report(e Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(e)
}

// Replace swaps the current pass for feed in a single step.
func (c *Collector) Replace(feed []Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.dropped = 0
	for _, e := range feed {
		c.add(e)
	}
}

// add keeps at most one copy of identical records, so Len, Counts and All agree.
func (c *Collector) add(e Error) {
	if slices.Contains(c.items, e) {
		return
	}
	if c.limit > 0 && len(c.items) >= c.limit {
		c.dropped++
		return
	}
	c.items = append(c.items, e)
}

// IsFatal reports whether e blocks a module under this collector's policy.
func (c *Collector) IsFatal(e Error) bool {
	return e.Kind.In(c.fatalKinds)
}

// HasFatal reports whether any record blocks a module from running.
func (c *Collector) HasFatal() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.items {
		if c.IsFatal(e) {
			return true
		}
	}
	return false
}

// All returns a sorted copy of the current pass.
func (c *Collector) All() []Error {
	c.mu.RLock()
	out := slices.Clone(c.items)
	c.mu.RUnlock()

	Sort(out)
	return out
}

// First returns the first fatal record in display order.
func (c *Collector) First() (Error, bool) {
	for _, e := range c.All() {
		if c.IsFatal(e) {
			return e, true
		}
	}
	return Error{}, false
}

// Len returns the number of records kept in the current pass.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Dropped returns how many records exceeded the limit in the current pass.
func (c *Collector) Dropped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped
}

// Counts returns the number of records per kind.
func (c *Collector) Counts() map[Kind]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[Kind]int)
	for _, e := range c.items {
		counts[e.Kind]++
	}
	return counts
}

// Sort orders diagnostics in place for display.
func Sort(errs []Error) {
	slices.SortStableFunc(errs, Error.Compare)
}

// HasFatal reports whether any of errs is fatal under DefaultFatalKinds.
func HasFatal(errs []Error) bool {
	for _, e := range errs {
		if e.Kind.Fatal() {
			return true
		}
	}
	return false
}
