package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/aretw0/livehost"
	"github.com/aretw0/livehost/internal/config"
	"github.com/aretw0/livehost/internal/presentation/tui"
	"github.com/aretw0/livehost/pkg/adapters/file"
	httpadapter "github.com/aretw0/livehost/pkg/adapters/http"
	"github.com/aretw0/livehost/pkg/adapters/lua"
	"github.com/aretw0/livehost/pkg/adapters/memory"
	"github.com/aretw0/livehost/pkg/adapters/process"
	"github.com/aretw0/livehost/pkg/adapters/pubsub"
	"github.com/aretw0/livehost/pkg/adapters/redis"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// claimTimeout bounds how long serve waits for another host holding the same ID.
const claimTimeout = 5 * time.Second

// ServeOptions configures the serve command.
type ServeOptions struct {
	ModulesPath string // process modules, YAML or JSON
	ScriptDir   string // Lua modules, one per file
	StateDir    string // file status store when Redis is not configured
	Load        string // module loaded at startup
	Play        bool
	Debug       bool
	Config      config.Config

	Stdout io.Writer
	Stderr io.Writer

	// ready, when set, receives the bound address once the server listens.
	ready func(addr string)
}

// Serve exposes a host over HTTP until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	cfg := opts.Config
	logger := createLogger(stderr, cfg, opts.Debug)

	store, locker, closeStore := openStore(opts, logger)
	defer closeStore()

	claimCtx, cancelClaim := context.WithTimeout(ctx, claimTimeout)
	unlock, err := locker.Lock(claimCtx, cfg.HostID, cfg.RedisTTL)
	cancelClaim()
	if err != nil {
		return fmt.Errorf("failed to claim host id %q: %w", cfg.HostID, err)
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			logger.Warn("Failed to release host id", "host_id", cfg.HostID, "err", err)
		}
	}()

	builder := lua.NewBuilder(lua.WithLogger(logger))
	processes, err := process.LoadModules(opts.ModulesPath)
	if err != nil {
		return err
	}
	catalog, err := livehost.NewCatalog(livehost.CatalogConfig{
		ScriptDir: opts.ScriptDir,
		Builder:   builder,
		Processes: processes,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	supOpts, err := supervisorOptions(cfg, logger)
	if err != nil {
		return err
	}
	supOpts = append(supOpts,
		supervisor.WithMetrics(registry),
		supervisor.WithStatusStore(store, cfg.HostID),
	)
	host := livehost.New(supervisor.New(supOpts...),
		livehost.WithBuilder(builder),
		livehost.WithCatalog(catalog),
		livehost.WithLogger(logger),
	)

	if opts.Load != "" {
		if _, err := host.LoadModule(ctx, opts.Load); err != nil {
			_ = shutdown(host.Supervisor, logger)
			return fmt.Errorf("failed to load %q: %w", opts.Load, err)
		}
		if opts.Play {
			if _, err := host.Play(ctx); err != nil {
				_ = shutdown(host.Supervisor, logger)
				return err
			}
		}
	}

	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
	relay := pubsub.NewRelay(bus, pubsub.WithLogger(logger))
	host.Subscribe(relay.Hooks())

	handler := httpadapter.NewHandler(host,
		httpadapter.WithLogger(logger),
		httpadapter.WithGatherer(registry),
		httpadapter.WithVersion(livehost.Version),
	)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		handler.Close()
		_ = bus.Close()
		_ = shutdown(host.Supervisor, logger)
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}
	addr := ln.Addr().String()

	tui.PrintBanner(stdout, livehost.Version)
	fmt.Fprintf(stdout, ">>> Serving %d module(s) on http://%s\n", len(host.Modules()), addr)

	g, gctx := errgroup.WithContext(ctx)
	// Request contexts end with the group so event streams do not hold up Shutdown.
	srv.BaseContext = func(net.Listener) context.Context { return gctx }
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, "host_id", cfg.HostID)
		if opts.ready != nil {
			opts.ready(addr)
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return traceState(gctx, bus, relay.Topic(pubsub.TopicState), logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		handler.Close()
		httpErr := srv.Shutdown(shutdownCtx)
		hostErr := shutdown(host.Supervisor, logger)
		return errors.Join(httpErr, hostErr, bus.Close())
	})
	return g.Wait()
}

// openStore picks the status store: Redis when configured, files under StateDir,
// otherwise memory. The locker guards the host ID in the same backend.
func openStore(opts ServeOptions, logger *slog.Logger) (ports.StatusStore, ports.DistributedLocker, func()) {
	cfg := opts.Config
	switch {
	case cfg.RedisEnabled():
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.RedisPrefix),
			redis.WithTTL(cfg.RedisTTL),
		)
		logger.Info("Using redis status store", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
		return store, redis.NewLocker(store.Client(), cfg.RedisPrefix), func() { _ = store.Close() }
	case opts.StateDir != "":
		logger.Info("Using file status store", "dir", opts.StateDir)
		return file.NewStore(opts.StateDir), memory.NewLocker(), func() {}
	default:
		return memory.NewStore(), memory.NewLocker(), func() {}
	}
}

// traceState logs relayed state changes at debug level until ctx is done.
func traceState(ctx context.Context, bus *gochannel.GoChannel, topic string, logger *slog.Logger) error {
	msgs, err := bus.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	for msg := range msgs {
		logger.Debug("Relayed state change", "uuid", msg.UUID, "payload", string(msg.Payload))
		msg.Ack()
	}
	return nil
}
