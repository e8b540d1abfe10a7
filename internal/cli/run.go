package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/livehost"
	"github.com/aretw0/livehost/internal/config"
	"github.com/aretw0/livehost/internal/presentation/tui"
	"github.com/aretw0/livehost/pkg/adapters/file"
	"github.com/aretw0/livehost/pkg/adapters/lua"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/supervisor"
)

// ErrModuleFailed is returned by Run when the module ends faulted outside watch mode.
var ErrModuleFailed = errors.New("module failed")

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Path   string
	Watch  bool
	Quiet  bool
	Debug  bool
	Config config.Config

	Stdout io.Writer
	Stderr io.Writer
}

// Run builds the script at opts.Path and plays it until it finishes or ctx is
// cancelled. In watch mode every save triggers a rebuild: clean builds are
// hot-swapped in, rejected builds are reported and the running module is kept.
func Run(ctx context.Context, opts RunOptions) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := createLogger(stderr, opts.Config, opts.Debug)

	supOpts, err := supervisorOptions(opts.Config, logger)
	if err != nil {
		return err
	}
	host := livehost.New(supervisor.New(supOpts...),
		livehost.WithBuilder(lua.NewBuilder(lua.WithLogger(logger))),
		livehost.WithLogger(logger),
	)

	printer := tui.NewPrinter(stdout, opts.Quiet)
	printer.SetFatalKinds(opts.Config.Kinds()...)
	host.Subscribe(printer.Hooks())

	// settled is signaled whenever a session ends, whatever the outcome.
	settled := make(chan struct{}, 1)
	host.Subscribe(supervisor.Hooks{
		OnStateChange: func(_ context.Context, c domain.StateChange) {
			if running(c.From) && !running(c.To) {
				select {
				case settled <- struct{}{}:
				default:
				}
			}
		},
	})

	src := file.NewSource(opts.Path)
	src.Logger = logger

	var changes <-chan struct{}
	if opts.Watch {
		if !opts.Quiet {
			tui.PrintBanner(stdout, livehost.Version)
		}
		if changes, err = src.Watch(ctx); err != nil {
			_ = shutdown(host.Supervisor, logger)
			return err
		}
		logger.Info("Starting watcher", "path", opts.Path)
	}

	start := func() error {
		s, err := src.Read()
		if err != nil {
			return err
		}
		_, err = host.Run(ctx, s)
		return err
	}

	if err := start(); err != nil {
		if !opts.Watch {
			return errors.Join(err, shutdown(host.Supervisor, logger))
		}
		reportReload(printer, host, err)
		printer.System("Waiting for changes...")
	}

	for {
		select {
		case <-ctx.Done():
			printer.System("Interrupted.")
			return shutdown(host.Supervisor, logger)

		case <-settled:
			st := host.Status()
			if running(st.State) {
				continue
			}
			if !opts.Watch {
				closeErr := shutdown(host.Supervisor, logger)
				if st.State == domain.StateFaulted {
					return errors.Join(fmt.Errorf("%w: %s", ErrModuleFailed, st.LastError), closeErr)
				}
				printer.System("Finished.")
				return closeErr
			}
			printer.System("Waiting for changes...")

		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Info("Change detected, rebuilding", "path", opts.Path)
			printer.System("Change detected in '%s'.", opts.Path)
			abandonStuck(ctx, host, printer)
			if err := start(); err != nil {
				reportReload(printer, host, err)
			}
		}
	}
}

func running(st domain.State) bool {
	return st.Active() || st == domain.StateStopping
}

// reportReload explains a failed rebuild. Gate diagnostics have already been
// printed through the diagnostics hook.
func reportReload(p *tui.Printer, host *livehost.Host, err error) {
	var gate *supervisor.GateError
	switch {
	case errors.As(err, &gate) && host.State().Active():
		p.System("Build rejected, keeping '%s' running.", host.Status().Module)
	case errors.As(err, &gate):
		p.System("Build rejected.")
	case errors.Is(err, supervisor.ErrStuckModule):
		p.System("'%s' ignored cancellation. The next change abandons it.", host.Status().Module)
	default:
		p.System("Reload failed: %v", err)
	}
}

// abandonStuck gives up on a session that never honored cancellation, so the
// next build can be loaded. The abandoned goroutine keeps running until it returns.
func abandonStuck(ctx context.Context, host *livehost.Host, p *tui.Printer) {
	if host.State() != domain.StateStuck {
		return
	}
	name := host.Status().Module
	if _, err := host.Abandon(ctx); err != nil {
		p.System("Abandon failed: %v", err)
		return
	}
	p.System("Abandoned stuck module '%s'.", name)
}
