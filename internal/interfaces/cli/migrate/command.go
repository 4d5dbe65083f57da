package migrate

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/infrastructure/database"
	"github.com/orris-inc/billing/internal/infrastructure/migration"
	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
	"github.com/orris-inc/billing/internal/shared/logger"
)

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect the versioned SQL migrations embedded in the binary.`,
	}

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newStatusCommand(opts),
	)

	return cmd
}

func newUpCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), opts, func(ctx context.Context, m *migration.Manager, log logger.Interface) error {
				log.Infow("running up migrations", "environment", opts.Env)
				if err := m.Migrate(ctx, database.Get()); err != nil {
					return err
				}
				log.Infow("migrations completed successfully")
				return nil
			})
		},
	}
}

func newDownCommand(opts *bootstrap.Options) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withManager(cmd.Context(), opts, func(ctx context.Context, m *migration.Manager, log logger.Interface) error {
				log.Infow("running down migrations", "environment", opts.Env, "steps", steps)
				if err := m.Down(ctx, database.Get(), steps); err != nil {
					return fmt.Errorf("down migration failed: %w", err)
				}
				log.Infow("down migration completed successfully")
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), opts, func(ctx context.Context, m *migration.Manager, _ logger.Interface) error {
				statuses, err := m.Status(ctx, database.Get())
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), statuses)
			})
		},
	}
}

func withManager(ctx context.Context, opts *bootstrap.Options,
	fn func(ctx context.Context, m *migration.Manager, log logger.Interface) error) error {
	cfg, log, err := bootstrap.LoadConfig(*opts)
	if err != nil {
		return err
	}
	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	return fn(ctx, migration.NewManagerWithStrategy(migration.NewGooseStrategy()), log)
}

func printStatus(w io.Writer, statuses []migration.MigrationStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED\tSOURCE")
	for _, s := range statuses {
		applied := "no"
		if s.Applied {
			applied = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.Source)
	}
	return tw.Flush()
}
