package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aretw0/livehost/internal/config"
	"github.com/aretw0/livehost/internal/presentation/tui"
	"github.com/aretw0/livehost/pkg/adapters/file"
	"github.com/aretw0/livehost/pkg/adapters/lua"
	"github.com/aretw0/livehost/pkg/diagnostic"
)

// ErrFatalDiagnostics is returned by Check when at least one script would be
// rejected by the load gate.
var ErrFatalDiagnostics = errors.New("fatal diagnostics")

// CheckOptions configures the check command.
type CheckOptions struct {
	Paths  []string
	Config config.Config
	Stdout io.Writer
}

// Check builds every script without running it and renders the combined
// diagnostics.
func Check(ctx context.Context, opts CheckOptions) error {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	builder := lua.NewBuilder()
	var all []diagnostic.Error
	for _, path := range opts.Paths {
		src, err := file.NewSource(path).Read()
		if err != nil {
			return err
		}
		_, diags, err := builder.Build(ctx, src)
		if err != nil {
			return err
		}
		all = append(all, diags...)
	}

	var (
		copts []diagnostic.CollectorOption
		ropts = []diagnostic.RenderOption{diagnostic.WithProfile(tui.Profile(stdout))}
	)
	if kinds := opts.Config.Kinds(); len(kinds) > 0 {
		copts = append(copts, diagnostic.WithFatalKinds(kinds...))
		ropts = append(ropts, diagnostic.WithFatal(kinds...))
	}
	collector := diagnostic.NewCollector(copts...)
	collector.Replace(all)

	if err := diagnostic.Render(stdout, collector.All(), ropts...); err != nil {
		return err
	}
	if collector.HasFatal() {
		return ErrFatalDiagnostics
	}
	return nil
}
