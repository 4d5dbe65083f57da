// Package jobs runs a single lifecycle batch on demand, outside the
// scheduler. Live runs take the same Redis lease as the scheduler, so a
// manual run never overlaps a scheduled one. Each command prints the batch
// report as JSON.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/cache"
	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
	httpApp "github.com/orris-inc/billing/internal/interfaces/http"
	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type batchFunc func(ctx context.Context, ucs *httpApp.UseCases, billing sharedConfig.BillingConfig) (*usecases.BatchReport, error)

// leaseAcquirer is satisfied by *cache.JobLease.
type leaseAcquirer interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (*cache.Lease, error)
}

// NewCommands returns the renew, warn, suspend and expire commands.
func NewCommands(opts *bootstrap.Options) []*cobra.Command {
	return []*cobra.Command{
		newRenewCommand(opts),
		newWarnCommand(opts),
		newSuspendCommand(opts),
		newExpireCommand(opts),
	}
}

func newRenewCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		limit          int
		dryRun         bool
		subscriptionID uint
	)

	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Charge subscriptions that are due for renewal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, constants.JobRunDueRenewals, dryRun, func(ctx context.Context, ucs *httpApp.UseCases, billing sharedConfig.BillingConfig) (*usecases.BatchReport, error) {
				return ucs.RunDueRenewals.Execute(ctx, usecases.RunDueRenewalsCommand{
					Limit:          limitOrDefault(limit, billing),
					DryRun:         dryRun,
					SubscriptionID: subscriptionID,
				})
			})
		},
	}

	addBatchFlags(cmd, &limit, &dryRun)
	cmd.Flags().UintVar(&subscriptionID, "subscription", 0, "Only consider this subscription ID")

	return cmd
}

func newWarnCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		limit      int
		dryRun     bool
		daysBefore int
	)

	cmd := &cobra.Command{
		Use:   "warn",
		Short: "Warn customers whose grace period is about to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, constants.JobSendSuspensionWarnings, dryRun, func(ctx context.Context, ucs *httpApp.UseCases, billing sharedConfig.BillingConfig) (*usecases.BatchReport, error) {
				days := daysBefore
				if !cmd.Flags().Changed("days-before") {
					days = billing.WarnDaysBefore
				}
				return ucs.SendSuspensionWarnings.Execute(ctx, usecases.SendSuspensionWarningsCommand{
					DaysBefore: days,
					Limit:      limitOrDefault(limit, billing),
					DryRun:     dryRun,
				})
			})
		},
	}

	addBatchFlags(cmd, &limit, &dryRun)
	cmd.Flags().IntVar(&daysBefore, "days-before", 3, "Warn when the grace period ends within this many days (default billing.warn_days_before)")

	return cmd
}

func newSuspendCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "suspend",
		Short: "Suspend subscriptions whose grace period has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, constants.JobSuspendExpiredGracePeriods, dryRun, func(ctx context.Context, ucs *httpApp.UseCases, billing sharedConfig.BillingConfig) (*usecases.BatchReport, error) {
				return ucs.SuspendExpiredGracePeriods.Execute(ctx, usecases.SuspendExpiredGracePeriodsCommand{
					Limit:  limitOrDefault(limit, billing),
					DryRun: dryRun,
				})
			})
		},
	}

	addBatchFlags(cmd, &limit, &dryRun)
	return cmd
}

func newExpireCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire lapsed subscriptions with auto-renew off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, constants.JobExpireSubscriptions, dryRun, func(ctx context.Context, ucs *httpApp.UseCases, billing sharedConfig.BillingConfig) (*usecases.BatchReport, error) {
				return ucs.ExpireSubscriptions.Execute(ctx, usecases.ExpireSubscriptionsCommand{
					Limit:  limitOrDefault(limit, billing),
					DryRun: dryRun,
				})
			})
		},
	}

	addBatchFlags(cmd, &limit, &dryRun)
	return cmd
}

func addBatchFlags(cmd *cobra.Command, limit *int, dryRun *bool) {
	cmd.Flags().IntVar(limit, "limit", 0, "Maximum subscriptions to process (default billing.batch_limit)")
	cmd.Flags().BoolVar(dryRun, "dry-run", false, "Report what would be processed without changing anything")
}

func limitOrDefault(limit int, billing sharedConfig.BillingConfig) int {
	if limit > 0 {
		return limit
	}
	return billing.BatchLimit
}

func runBatch(cmd *cobra.Command, opts *bootstrap.Options, job string, dryRun bool, fn batchFunc) error {
	env, err := bootstrap.Open(cmd.Context(), *opts)
	if err != nil {
		return err
	}
	defer env.Close()

	container, err := env.NewContainer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	container.Start(ctx)

	var report *usecases.BatchReport
	err = withLease(ctx, cache.NewJobLease(env.Redis), env.Cfg.Scheduler.LeaseTTL, job, dryRun, env.Log,
		func(ctx context.Context) error {
			var runErr error
			report, runErr = fn(ctx, container.UseCases(), env.Cfg.Billing)
			return runErr
		})
	// Shutdown drains queued notifications before the process exits.
	container.Shutdown()
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), report)
}

// withLease runs fn under the job's lease. Dry runs only read and skip it.
func withLease(ctx context.Context, lease leaseAcquirer, ttl time.Duration, job string, dryRun bool,
	log logger.Interface, fn func(ctx context.Context) error) error {
	if dryRun {
		return fn(ctx)
	}

	held, err := lease.Acquire(ctx, job, ttl)
	if errors.Is(err, cache.ErrLeaseHeld) {
		return fmt.Errorf("job %s is already running on another instance: %w", job, err)
	}
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil {
			log.Warnw("failed to release job lease", "job", job, "error", err)
		}
	}()

	return fn(ctx)
}

func printReport(w io.Writer, report *usecases.BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
