/*
Package module defines the contract every loadable unit of user code implements.

The supervisor only ever talks to a module through three operations:

  - Pause and Resume: prompt, synchronous, advisory hooks.
  - Run: the module body. It receives a context that is cancelled when the host
    stops or replaces the module, and a send-only channel endpoint.

Cancellation is cooperative. Run must observe ctx at bounded intervals (Loop polls
every DefaultTick) and return once it is done. A Run that never looks at ctx cannot
be stopped; the supervisor reports it as stuck but does not kill it.
*/
package module

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/livehost/pkg/channel"
)

// ErrNilModule is returned when a handle is created without a module.
var ErrNilModule = errors.New("module is nil")

// Module is the capability set the supervisor drives.
type Module interface {
	// Pause is called when the host goes from playing to paused.
	Pause()
	// Resume is called when the host goes from paused back to playing.
	Resume()
	// Run executes until ctx is done or the module finishes on its own.
	Run(ctx context.Context, out channel.Sender) error
}

// Handle is an opaque reference to a loaded module. Handles are replaced on
// hot-swap, never mutated.
type Handle struct {
	// Name identifies the module for logs and status (typically the source unit).
	Name string
	// Digest optionally fingerprints the source the module was built from.
	Digest string
	// Module is the implementation.
	Module Module
}

// NewHandle validates and builds a handle.
func NewHandle(name string, m Module) (Handle, error) {
	if m == nil {
		return Handle{}, fmt.Errorf("%w: %q", ErrNilModule, name)
	}
	return Handle{Name: name, Module: m}, nil
}

// IsZero reports whether h refers to no module.
func (h Handle) IsZero() bool {
	return h.Module == nil
}

// RunFunc adapts a plain function into a Module with no-op Pause/Resume.
type RunFunc func(ctx context.Context, out channel.Sender) error

func (f RunFunc) Pause()  {}
func (f RunFunc) Resume() {}

func (f RunFunc) Run(ctx context.Context, out channel.Sender) error {
	return f(ctx, out)
}
