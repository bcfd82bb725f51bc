// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veril/veril/internal/auth"
	"github.com/veril/veril/internal/auth/postgres"
	"github.com/veril/veril/internal/config"
	"github.com/veril/veril/internal/logging"
	"github.com/veril/veril/internal/mail"
	"github.com/veril/veril/internal/observability"
	"github.com/veril/veril/internal/store"
	"github.com/veril/veril/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication service: connect to PostgreSQL, run pending
migrations, and serve the signup, verification, and login API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	// Flag names mirror config file keys so posflag can merge them. Flag
	// defaults match config defaults so an untouched flag never overrides a
	// file value.
	defaults := config.Default()
	cmd.Flags().String("server.addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics.addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("session.secret", "", "session token signing secret")
	cmd.Flags().String("log.format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().Bool("migrate", true, "run pending migrations on startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// DATABASE_URL is the conventional deployment override.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("veril", version, cfg.Log.Format)

	if migrateOnStart, _ := cmd.Flags().GetBool("migrate"); migrateOnStart {
		if err := runMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("database connected")

	signer, err := auth.NewJWTSigner(cfg.Session.Secret, cfg.Session.Expiry)
	if err != nil {
		return fmt.Errorf("failed to create session signer: %w", err)
	}

	notifier := mail.NewNotifier(mail.Config{
		Enabled: cfg.Mail.Enabled,
		Addr:    cfg.Mail.Addr,
		From:    cfg.Mail.From,
		BaseURL: cfg.Mail.BaseURL,
	}, slog.Default())

	service, err := auth.NewService(
		postgres.NewAccountRepository(pool),
		postgres.NewVerificationTokenRepository(pool),
		postgres.NewTransactor(pool),
		auth.NewArgon2idHasher(),
		signer,
		notifier,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := web.NewServer(cfg.Server.Addr, service, metrics, slog.Default())
	if err != nil {
		return stopObsAndWrap(obsServer, fmt.Errorf("failed to create API server: %w", err))
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		return stopObsAndWrap(obsServer, fmt.Errorf("failed to start API server: %w", err))
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	cmd.Println("Veril started")
	slog.Info("service ready", "addr", apiServer.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping API server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// stopObsAndWrap stops the observability server during startup cleanup.
func stopObsAndWrap(obsServer *observability.Server, err error) error {
	if obsServer == nil {
		return err
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
	}
	return err
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
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
		// Context cancelled, exit monitoring
	}
}
