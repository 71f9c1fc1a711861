// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/config"
	"github.com/gridquest/gridquest/internal/game"
	"github.com/gridquest/gridquest/internal/logging"
	"github.com/gridquest/gridquest/internal/observability"
	"github.com/gridquest/gridquest/internal/realtime"
	"github.com/gridquest/gridquest/internal/web"
)

const (
	shutdownTimeout      = 5 * time.Second
	sessionPurgeInterval = 10 * time.Minute
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the HTTP and websocket game server. The storage schema is
migrated before the server starts accepting players.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the game server until ctx is cancelled, a shutdown
// signal arrives or a server fails. If deps is nil, default implementations
// are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.Ready == nil {
		deps.Ready = func(string) {}
	}

	logger := logging.SetDefault(logging.Options{
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting gridquest",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store.Driver,
	)

	dir, err := loadWorld(cfg.World.File)
	if err != nil {
		return err
	}

	backend, err := deps.StoreFactory(ctx, cfg.Store)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Warn("error closing store", "error", closeErr)
		}
	}()

	if err := backend.Migrate(ctx); err != nil {
		return oops.Code("MIGRATION_FAILED").With("driver", backend.Name()).Wrap(err)
	}
	logger.Info("store ready", "driver", backend.Name())

	obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ping)
	reg := obsServer.Registry()

	hub := realtime.NewHub(realtime.WithRegistry(reg), realtime.WithLogger(logger))

	gameSvc, err := game.NewService(backend, dir,
		game.WithPublisher(hub),
		game.WithMetrics(game.NewMetrics(reg)),
		game.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(backend, auth.NewArgon2idHasher(),
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	limiter := web.NewRateLimiter(web.RateLimiterConfig{
		BurstCapacity: cfg.RateLimit.Burst,
		SustainedRate: cfg.RateLimit.Rate,
	}, reg)
	defer limiter.Close()

	webServer, err := web.NewServer(web.Config{
		Addr:          cfg.HTTP.Addr,
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
		SessionTTL:    cfg.Session.TTL,
	}, authSvc, gameSvc, hub,
		web.WithRateLimiter(limiter),
		web.WithMetrics(obsServer.Metrics()),
		web.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go authSvc.RunJanitor(ctx, sessionPurgeInterval)

	obsStarted := false
	if cfg.Metrics.Addr != "" {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		obsStarted = true
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	webErrChan, err := webServer.Start()
	if err != nil {
		stopServers(logger, nil, obsServer, obsStarted)
		return oops.Code("WEB_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	cmd.Println("GridQuest server started")
	logger.Info("gridquest ready", "http_addr", webServer.Addr())
	deps.Ready(webServer.Addr())

	<-ctx.Done()
	logger.Info("shutting down...")

	stopServers(logger, webServer, obsServer, obsStarted)

	logger.Info("shutdown complete")
	return nil
}

// stopServers gracefully stops whichever servers were started.
func stopServers(logger *slog.Logger, webServer *web.Server, obsServer ObservabilityServer, obsStarted bool) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if webServer != nil {
		if err := webServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping web server", "error", err)
		}
	}
	if obsStarted {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// monitorServerErrors cancels ctx when the server reports an error.
// It returns when the channel closes or ctx is done.
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
