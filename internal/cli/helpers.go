package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/livehost/internal/config"
	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/supervisor"
)

// shutdownGrace bounds how long a command waits for the module after an interrupt.
const shutdownGrace = 10 * time.Second

// createLogger builds the command logger. Debug output goes to w so module
// messages on stdout stay clean.
func createLogger(w io.Writer, cfg config.Config, debug bool) *slog.Logger {
	if debug {
		return logging.NewWithWriter(w, slog.LevelDebug)
	}
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWithWriter(w, level)
}

// supervisorOptions maps the environment configuration onto supervisor options.
func supervisorOptions(cfg config.Config, logger *slog.Logger) ([]supervisor.Option, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	opts := []supervisor.Option{
		supervisor.WithLogger(logger),
		supervisor.WithStopTimeout(cfg.StopTimeout),
		supervisor.WithPolicy(policy),
	}
	if kinds := cfg.Kinds(); len(kinds) > 0 {
		opts = append(opts, supervisor.WithFatalKinds(kinds...))
	}
	return opts, nil
}

// shutdown stops and closes sup on a fresh context, abandoning a stuck module so
// the process can exit.
func shutdown(sup *supervisor.Supervisor, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	err := sup.Close(ctx)
	var stuck *supervisor.StuckError
	if errors.As(err, &stuck) {
		logger.Warn("Module ignored cancellation, exiting anyway", "module", stuck.Module, "waited", stuck.Waited)
		return nil
	}
	return err
}
