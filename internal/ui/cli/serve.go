package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	coreapp "packsense/internal/core/app"
	"packsense/internal/core/config"
	mcpruntime "packsense/internal/mcp/runtime"
	"packsense/internal/shared/observability"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func (r *runner) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.serve(ctx)
}

// serve runs the stdio tool server until the input stream ends or ctx is
// cancelled. Watchers, warm-up and the HTTP endpoints run alongside it.
func (r *runner) serve(ctx context.Context) error {
	cfg, cfgPath, err := loadConfig(r.opts.configPath, r.cwd)
	if err != nil {
		return err
	}
	r.applyOverrides(cfg)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:       cfg.Observability.OTLPEndpoint,
		Insecure:       cfg.Observability.OTLPInsecure,
		ServiceVersion: versionString,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	session, err := initializeSession(cfg, r.cwd, r.factory)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if pruned, err := session.PrunePackStore(); err != nil {
		slog.Warn("pack store prune failed", "error", err)
	} else if pruned > 0 {
		slog.Info("pruned stale pack store entries", "count", pruned)
	}

	if err := session.StartWatcher(); err != nil {
		slog.Warn("workspace watcher unavailable", "error", err)
	}

	if cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, func(next *config.Config) {
			r.applyOverrides(next)
			if err := session.UpdateConfig(next); err != nil {
				slog.Error("failed to apply reloaded config", "path", cfgPath, "error", err)
			}
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable", "path", cfgPath, "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		obs := NewObservabilityServer(addr, coreapp.NewHealthService(session), session)
		if err := obs.Start(ctx); err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	var warm sync.WaitGroup
	warm.Add(1)
	go func() {
		defer warm.Done()
		if err := session.Warmup(serveCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("warm-up incomplete", "error", err)
		}
	}()
	defer func() {
		cancelServe()
		warm.Wait()
	}()

	server, err := mcpruntime.Build(cfg, mcpruntime.Dependencies{
		Symbols: session,
		Logger:  slog.Default(),
	}, r.stdin, r.stdout)
	if err != nil {
		return fmt.Errorf("build tool server: %w", err)
	}
	defer server.Stop()

	if err := server.Run(serveCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
