package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
)

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled lifecycle jobs",
		Long: `Run renewals on scheduler.renewal_interval and the daily suspension warning,
suspension and expiry jobs on scheduler.daily_at. Several workers may run at
once; a Redis lease keeps each job to one instance at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
}

func run(parent context.Context, opts *bootstrap.Options) error {
	env, err := bootstrap.Open(parent, *opts)
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.Log

	container, err := env.NewContainer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	container.Start(ctx)
	defer container.Shutdown()

	sm, err := container.NewScheduler()
	if err != nil {
		return err
	}
	sm.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	log.Infow("shutting down worker...")
	if err := sm.Stop(); err != nil {
		return err
	}
	log.Infow("worker exited gracefully")
	return nil
}
