package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/infrastructure/migration"
	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
)

var (
	autoMigrate   bool
	withScheduler bool
)

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Serve the plan change API, /healthz and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "Also run the lifecycle jobs in this process")

	return cmd
}

func run(parent context.Context, opts *bootstrap.Options) error {
	env, err := bootstrap.Open(parent, *opts)
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.Log

	log.Infow("starting server",
		"environment", opts.Env,
		"auto_migrate", autoMigrate,
		"with_scheduler", withScheduler,
	)

	if autoMigrate {
		if err := migration.NewManager(opts.Env).Migrate(parent, env.DB); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	container, err := env.NewContainer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	container.Start(ctx)
	defer container.Shutdown()

	if withScheduler {
		sm, err := container.NewScheduler()
		if err != nil {
			return err
		}
		sm.Start()
		defer func() {
			if err := sm.Stop(); err != nil {
				log.Errorw("failed to stop scheduler", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         env.Cfg.Server.GetAddr(),
		Handler:      container.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: env.Cfg.Billing.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting",
			"address", env.Cfg.Server.GetAddr(),
			"mode", env.Cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Infow("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}
