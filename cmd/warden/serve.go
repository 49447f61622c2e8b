// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/auth"
	authpg "github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/httpapi"
	"github.com/wardenauth/warden/internal/logging"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth service",
		Long: `Start the HTTP API for registration, login, token refresh, and
revocation, plus a separate listener for metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("server.addr", "", "HTTP API listen address")
	cmd.Flags().String("observability.addr", "", "metrics/health listen address")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("warden", version, cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting auth service",
		"addr", cfg.Server.Addr,
		"observability_addr", cfg.Observability.Addr,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	if cfg.Database.AutoMigrate {
		migrator, err := store.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close() //nolint:errcheck // migration error takes precedence
			return err
		}
		if err := migrator.Close(); err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	issuer, err := auth.NewTokenIssuer(auth.IssuerConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL,
	})
	if err != nil {
		return err
	}

	service, err := auth.NewServiceWithLogger(
		authpg.NewUserRepository(pool),
		authpg.NewRoleRepository(pool),
		authpg.NewRefreshTokenRepository(pool),
		auth.NewPBKDF2Hasher(cfg.Auth.HashIterations),
		issuer,
		cfg.Auth.RefreshTTL,
		slog.Default(),
	)
	if err != nil {
		return err
	}

	obsServer := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	apiServer, err := httpapi.NewServer(cfg.Server.Addr, service, issuer, obsServer.Metrics(), slog.Default())
	if err != nil {
		stopServer(obsServer, "observability")
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer, "observability")
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth service started")
	slog.Info("auth service ready",
		"api_addr", apiServer.Addr(),
		"observability_addr", obsServer.Addr(),
	)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	stopServer(apiServer, "api")
	stopServer(obsServer, "observability")

	slog.Info("auth service stopped")
	return nil
}

// stoppable is the shutdown surface shared by both servers.
type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, name string) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		slog.Warn("failed to stop server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels the run context when a server reports a fatal
// error after startup.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
