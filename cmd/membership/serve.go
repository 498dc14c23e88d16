// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/membership/internal/config"
	"github.com/holomush/membership/internal/httpapi"
	"github.com/holomush/membership/internal/logging"
	"github.com/holomush/membership/internal/mail"
	"github.com/holomush/membership/internal/membership"
	"github.com/holomush/membership/internal/membership/memstore"
	"github.com/holomush/membership/internal/membership/postgres"
	"github.com/holomush/membership/internal/social/facebook"
	"github.com/holomush/membership/internal/store"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the membership HTTP API",
		Long: `Run the JSON API together with the metrics and health endpoint.
The process stops cleanly on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, flags, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&flags.autoMigrate, "auto-migrate", false, "apply pending database migrations before serving")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, flags *serveFlags, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if flags == nil {
		flags = &serveFlags{}
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logger := logging.SetDefault("membership", version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting membership service",
		"http_addr", cfg.HTTP.Addr,
		"in_memory", cfg.Database.InMemory,
		"log_format", cfg.Log.Format,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineDeps, closeStorage, err := openStorage(ctx, cfg, flags, deps, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	hasher, err := membership.NewArgon2idHasher(cfg.Security.Salt)
	if err != nil {
		return oops.With("operation", "create password hasher").Wrap(err)
	}
	engineDeps.Hasher = hasher
	engineDeps.Logger = logger

	engineDeps.Mailer, err = newMailer(cfg.Mail, logger)
	if err != nil {
		return err
	}

	if cfg.Facebook.Enabled() {
		fb, fbErr := facebook.New(facebook.Options{
			AppID:     cfg.Facebook.AppID,
			AppSecret: cfg.Facebook.AppSecret,
			GraphURL:  cfg.Facebook.GraphURL,
		})
		if fbErr != nil {
			return oops.With("operation", "create facebook client").Wrap(fbErr)
		}
		engineDeps.Social = fb
	}

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var httpMetrics httpapi.Middleware
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		engineDeps.Metrics = membership.NewMetrics(obsServer.Registry())
		httpMetrics = obsServer.HTTPMetrics().Middleware
	}

	engine, err := membership.NewEngine(engineDeps, cfg.EngineConfig())
	if err != nil {
		return oops.With("operation", "create membership engine").Wrap(err)
	}

	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:  logger,
		Metrics: httpMetrics,
	})

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	if obsServer != nil {
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop http server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Membership service started")
	logger.Info("membership service ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// openStorage returns the repositories and transactor, and a func that
// releases them.
func openStorage(ctx context.Context, cfg config.Config, flags *serveFlags, deps *ServeDeps, logger *slog.Logger) (membership.Dependencies, func(), error) {
	if cfg.Database.InMemory {
		logger.Warn("using in-memory storage; accounts are lost on exit")
		return memstore.New().Dependencies(), func() {}, nil
	}

	if flags.autoMigrate {
		if err := migrateUp(cfg.Database.URL, deps); err != nil {
			return membership.Dependencies{}, nil, err
		}
		logger.Info("database migrations applied")
	}

	opts := store.DefaultPoolOptions()
	opts.MaxConns = cfg.Database.MaxConns
	if cfg.Database.ConnectAttempts > 0 {
		opts.ConnectAttempts = cfg.Database.ConnectAttempts
	}
	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, opts)
	if err != nil {
		return membership.Dependencies{}, nil, oops.With("operation", "connect to database").Wrap(err)
	}
	logger.Info("connected to database")
	return postgres.Dependencies(pool), pool.Close, nil
}

func migrateUp(databaseURL string, deps *ServeDeps) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	return nil
}

// newMailer sends through SMTP when a relay is configured and logs the
// messages otherwise.
func newMailer(cfg config.MailConfig, logger *slog.Logger) (membership.Mailer, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("no smtp host configured; emails are logged, not sent")
		return mail.NewLogMailer(logger), nil
	}
	mailer, err := mail.NewSMTPMailer(mail.SMTPOptions{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}, logger)
	if err != nil {
		return nil, oops.With("operation", "create smtp mailer").Wrap(err)
	}
	return mailer, nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error arrives, the channel closes or ctx is done.
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
