package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/ports"
)

// ErrModuleNotFound is returned when resolving an unregistered name.
var ErrModuleNotFound = errors.New("module not found")

// ResolveFunc builds a fresh module each time it is called.
type ResolveFunc func(ctx context.Context) (module.Handle, []diagnostic.Error, error)

// Registry is an allow-list of resolvable modules. It implements ports.Catalog.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]ResolveFunc
}

var _ ports.Catalog = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]ResolveFunc)}
}

// Register adds a module. A name registered twice is overwritten.
func (r *Registry) Register(name string, fn ResolveFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = fn
}

// RegisterModule registers a constructor for a module that needs no build step.
func (r *Registry) RegisterModule(name string, newModule func() module.Module) {
	r.Register(name, func(ctx context.Context) (module.Handle, []diagnostic.Error, error) {
		h, err := module.NewHandle(name, newModule())
		return h, nil, err
	})
}

// Resolve builds the named module.
func (r *Registry) Resolve(ctx context.Context, name string) (module.Handle, []diagnostic.Error, error) {
	r.mu.RLock()
	fn, ok := r.modules[name]
	r.mu.RUnlock()

	if !ok {
		return module.Handle{}, nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return fn(ctx)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
