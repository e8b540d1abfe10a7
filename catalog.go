package livehost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/adapters/file"
	"github.com/aretw0/livehost/pkg/adapters/process"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/aretw0/livehost/pkg/registry"
)

// CatalogConfig lists where modules come from.
type CatalogConfig struct {
	// ScriptDir is scanned (not recursively) for files with ScriptExt.
	ScriptDir string
	ScriptExt string
	Builder   ports.Builder

	// Processes are external programs, usually read with process.LoadModules.
	Processes map[string]process.ModuleConfig

	Logger *slog.Logger
}

// NewCatalog builds a registry from cfg. Scripts are named after their file name
// without extension. A script and a process with the same name is an error.
func NewCatalog(cfg CatalogConfig) (*registry.Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	reg := registry.NewRegistry()

	if cfg.ScriptDir != "" {
		if cfg.Builder == nil {
			return nil, ErrNoBuilder
		}
		ext := cfg.ScriptExt
		if ext == "" {
			ext = ".lua"
		}
		entries, err := os.ReadDir(cfg.ScriptDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scripts: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ext)
			reg.Register(name, buildFile(cfg.Builder, file.NewSource(filepath.Join(cfg.ScriptDir, entry.Name()))))
		}
	}

	for name, pc := range cfg.Processes {
		if contains(reg.Names(), name) {
			return nil, fmt.Errorf("module %q is both a script and a process", name)
		}
		reg.RegisterModule(name, func() module.Module {
			return process.NewModule(pc, process.WithLogger(logger.With("module", name)))
		})
	}
	return reg, nil
}

// buildFile reads src from disk on every resolve so edits are picked up.
func buildFile(b ports.Builder, src *file.Source) registry.ResolveFunc {
	return func(ctx context.Context) (module.Handle, []diagnostic.Error, error) {
		s, err := src.Read()
		if err != nil {
			return module.Handle{}, nil, err
		}
		return b.Build(ctx, s)
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
