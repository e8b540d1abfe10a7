package livehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/aretw0/livehost/pkg/supervisor"
)

// ErrNoBuilder is returned by source operations on a Host built without a Builder.
var ErrNoBuilder = errors.New("no builder configured")

// ErrNoCatalog is returned by LoadModule on a Host built without a Catalog.
var ErrNoCatalog = errors.New("no catalog configured")

// Host is the high-level entry point. It embeds the Supervisor, so every control
// operation is available directly, and adds the build -> gate -> load/hot-swap flow.
type Host struct {
	*supervisor.Supervisor

	builder ports.Builder
	catalog ports.Catalog
	logger  *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithBuilder sets the builder used by Run, Reload and Check.
func WithBuilder(b ports.Builder) Option {
	return func(h *Host) { h.builder = b }
}

// WithCatalog sets the catalog used by LoadModule.
func WithCatalog(c ports.Catalog) Option {
	return func(h *Host) { h.catalog = c }
}

// WithLogger sets a custom structured logger for the host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New wraps sup. If sup is nil a supervisor with default options is created.
func New(sup *supervisor.Supervisor, opts ...Option) *Host {
	h := &Host{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	if sup == nil {
		sup = supervisor.New(supervisor.WithLogger(h.logger))
	}
	h.Supervisor = sup
	return h
}

// Check builds src and returns its sorted diagnostics without touching the
// supervisor.
func (h *Host) Check(ctx context.Context, src ports.Source) ([]diagnostic.Error, error) {
	if h.builder == nil {
		return nil, ErrNoBuilder
	}
	_, diags, err := h.builder.Build(ctx, src)
	if err != nil {
		return nil, err
	}
	diagnostic.Sort(diags)
	return diags, nil
}

// Run builds src and starts it: Load then Play from a resting state, or a gated
// hot-swap while a module is active.
func (h *Host) Run(ctx context.Context, src ports.Source) (domain.State, error) {
	if h.builder == nil {
		return h.State(), ErrNoBuilder
	}
	mod, diags, err := h.builder.Build(ctx, src)
	if err != nil {
		return h.State(), fmt.Errorf("build %s: %w", src.Name, err)
	}
	return h.Apply(ctx, mod, diags, true)
}

// LoadModule resolves name from the catalog and loads it. While a module is active
// the new one is hot-swapped in instead.
func (h *Host) LoadModule(ctx context.Context, name string) (domain.State, error) {
	if h.catalog == nil {
		return h.State(), ErrNoCatalog
	}
	mod, diags, err := h.catalog.Resolve(ctx, name)
	if err != nil {
		return h.State(), err
	}
	return h.Apply(ctx, mod, diags, false)
}

// Modules lists the names LoadModule accepts.
func (h *Host) Modules() []string {
	if h.catalog == nil {
		return nil
	}
	return h.catalog.Names()
}

// Apply gates a built module and installs it.
//
// While a module is active, diagnostics are gated first so a broken build leaves the
// running module alone; a clean build is hot-swapped in. Otherwise the module is
// loaded, and played when play is true.
func (h *Host) Apply(ctx context.Context, mod module.Handle, diags []diagnostic.Error, play bool) (domain.State, error) {
	if h.State().Active() {
		if err := h.Gate(mod.Name, diags); err != nil {
			h.logger.Warn("Keeping current module", "rejected", mod.Name, "err", err)
			return h.State(), err
		}
		return h.swapOrStart(ctx, mod, diags)
	}
	return h.start(ctx, mod, diags, play)
}

// swapOrStart hot-swaps mod in. If the running session ended on its own after the
// caller saw it active, mod is loaded and played instead.
func (h *Host) swapOrStart(ctx context.Context, mod module.Handle, diags []diagnostic.Error) (domain.State, error) {
	st, err := h.HotSwap(ctx, mod, diags)
	if !errors.Is(err, supervisor.ErrInvalidTransition) {
		return st, err
	}
	switch st {
	case domain.StateIdle, domain.StateLoaded, domain.StateFaulted:
		h.logger.Info("Session ended before hot-swap, starting instead", "module", mod.Name, "state", st)
		return h.start(ctx, mod, diags, true)
	}
	return st, err
}

func (h *Host) start(ctx context.Context, mod module.Handle, diags []diagnostic.Error, play bool) (domain.State, error) {
	st, err := h.Load(ctx, mod, diags)
	if err != nil || !play {
		return st, err
	}
	return h.Play(ctx)
}
