// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/control"
	"github.com/taskforge/taskforge/internal/logging"
	"github.com/taskforge/taskforge/internal/observability"
	"github.com/taskforge/taskforge/internal/web"
)

// shutdownTimeout bounds graceful shutdown of all servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the REST API together with the metrics and health endpoints
and the gRPC health service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configSources(cmd))
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the server until a signal arrives, ctx is cancelled
// or a listener fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StorageOpener == nil {
		deps.StorageOpener = openStorage
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = newWebServer
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.ControlServerFactory == nil {
		deps.ControlServerFactory = func(logger *slog.Logger) (ControlServer, error) {
			return control.NewGRPCServer(control.ServiceName, logger)
		}
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("taskforge", version, cfg.Log.Format, level)
	logger.Info("starting server",
		"http_addr", cfg.HTTP.Addr,
		"storage", cfg.Storage.Driver,
	)

	st, err := deps.StorageOpener(ctx, cfg.Storage, logger)
	if err != nil {
		return oops.With("operation", "open storage").Wrap(err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, st.Ready)
		metrics = obsServer.Metrics()
	}

	a, err := buildApp(cfg, st, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		a.close(closeCtx)
	}()

	// Servers are stopped in reverse start order.
	var started []func(context.Context) error
	stopAll := func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i](shutdownCtx); err != nil {
				logger.Warn("error stopping server", "error", err)
			}
		}
	}
	defer stopAll()

	webServer := deps.WebServerFactory(cfg.HTTP.Addr, a.handler)
	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.Code("WEB_START_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	started = append(started, webServer.Stop)
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		started = append(started, obsServer.Stop)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	var controlServer ControlServer
	if cfg.Control.Addr != "" {
		controlServer, err = deps.ControlServerFactory(logger)
		if err != nil {
			return oops.Code("CONTROL_CREATE_FAILED").Wrap(err)
		}
		controlErrCh, err := controlServer.Start(cfg.Control.Addr)
		if err != nil {
			return oops.Code("CONTROL_START_FAILED").With("addr", cfg.Control.Addr).Wrap(err)
		}
		started = append(started, controlServer.Stop)
		go monitorServerErrors(ctx, cancel, controlErrCh, "control-grpc")
		controlServer.SetServing(true)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("TaskForge started")
	logger.Info("server ready", "http_addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	if controlServer != nil {
		controlServer.SetServing(false)
	}
	logger.Info("shutting down")
	return nil
}

func newWebServer(addr string, handler http.Handler) Server {
	return web.NewServer(addr, handler)
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed, or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
