package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/metrics"
	"github.com/JonMunkholm/geobuild/internal/service"
	"github.com/JonMunkholm/geobuild/internal/store"
	"github.com/JonMunkholm/geobuild/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP build API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initContext(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return Serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides SERVER_PORT)")
	return cmd
}

// Serve opens the store, starts the HTTP API and blocks until SIGINT,
// SIGTERM or ctx cancellation, then drains in-flight builds and shuts the
// server down within cfg.Server.ShutdownTimeout. Source paths are always
// confined to a data directory, see config.ForServe.
func Serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.ForServe()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"data_dir", cfg.Build.DataDir,
		"build_max_concurrent", cfg.Build.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"api_keys_required", cfg.Security.RequireAPIKey,
	)

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		slog.Info("store opened", "backend", cfg.Store.Backend)
	} else {
		slog.Warn("no store configured, only dry runs will succeed")
	}

	if _, err := os.Stat(cfg.Build.DataDir); err != nil {
		slog.Warn("data directory is not readable", "data_dir", cfg.Build.DataDir, "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	server, svc := newAPI(cfg, st, reg)

	slog.Info("object types registered", "count", core.TypeCount())

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := svc.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for builds to complete", "active", status.Active)
		if err := svc.WaitForBuilds(shutdownCtx); err != nil {
			slog.Warn("builds did not complete in time", "error", err)
		} else {
			slog.Info("all builds completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}

// newAPI wires the build service, its metrics and the HTTP server for cfg.
func newAPI(cfg *config.Config, st store.Store, reg *prometheus.Registry) (*web.Server, *service.Service) {
	rec := metrics.New(reg)
	svc := service.New(cfg.Build, st, service.WithObserver(rec))
	rec.RegisterLimiter(svc.Limiter())
	return web.NewServer(cfg, svc, rec), svc
}
