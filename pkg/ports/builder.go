package ports

import (
	"context"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/module"
)

// Source is one unit of user code handed to a Builder.
type Source struct {
	// Name is the unit identifier used in diagnostic spans (usually a file path).
	Name string
	// Code is the raw source text.
	Code []byte
}

// Builder compiles a source unit into a loadable module.
// User mistakes are reported as diagnostics with a zero handle; the error return is
// reserved for infrastructure failures (I/O, cancelled context).
type Builder interface {
	Build(ctx context.Context, src Source) (module.Handle, []diagnostic.Error, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, src Source) (module.Handle, []diagnostic.Error, error)

func (f BuilderFunc) Build(ctx context.Context, src Source) (module.Handle, []diagnostic.Error, error) {
	return f(ctx, src)
}

// Catalog resolves modules by name.
type Catalog interface {
	// Resolve builds the named module. Unknown names are an error, not a diagnostic.
	Resolve(ctx context.Context, name string) (module.Handle, []diagnostic.Error, error)

	// Names lists the modules the catalog can resolve.
	Names() []string
}

// Watchable defines an interface for sources that can notify about changes.
// This is typically used for hot-reload in development.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying source changes.
	// It abstracts away the specific event details, signaling only that a rebuild is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
