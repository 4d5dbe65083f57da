package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
	"github.com/orris-inc/billing/internal/interfaces/cli/jobs"
	"github.com/orris-inc/billing/internal/interfaces/cli/migrate"
	"github.com/orris-inc/billing/internal/interfaces/cli/server"
	"github.com/orris-inc/billing/internal/interfaces/cli/worker"
)

//	@title			Billing API
//	@version		1.0
//	@description	Plan changes and subscription reactivation for the billing lifecycle engine.
//	@BasePath		/api/v1
func main() {
	opts := &bootstrap.Options{}

	rootCmd := &cobra.Command{
		Use:          "billing",
		Short:        "Subscription billing lifecycle engine",
		Long:         `Renews subscriptions, runs the grace period and suspension lifecycle, and serves the plan change API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.Env, "env", "e", "development", "Environment (development, test, production)")
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		server.NewCommand(opts),
		worker.NewCommand(opts),
		migrate.NewCommand(opts),
		jobs.NewReconcileCommand(opts),
	)
	rootCmd.AddCommand(jobs.NewCommands(opts)...)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
