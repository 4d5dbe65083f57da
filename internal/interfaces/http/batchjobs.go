package http

import (
	"context"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/scheduler"
	sharedConfig "github.com/orris-inc/billing/internal/shared/config"
)

// BatchJobs adapts the lifecycle use cases to scheduler jobs with the
// configured batch limit.
type BatchJobs struct {
	Renewals    scheduler.BatchJob
	Warnings    scheduler.BatchJob
	Suspensions scheduler.BatchJob
	Expiries    scheduler.BatchJob
}

func NewBatchJobs(ucs *UseCases, billing sharedConfig.BillingConfig) *BatchJobs {
	processed := func(report *usecases.BatchReport) int {
		return report.Selected
	}

	return &BatchJobs{
		Renewals: scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			report, err := ucs.RunDueRenewals.Execute(ctx, usecases.RunDueRenewalsCommand{Limit: billing.BatchLimit})
			if err != nil {
				return 0, err
			}
			return processed(report), nil
		}),
		Warnings: scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			report, err := ucs.SendSuspensionWarnings.Execute(ctx, usecases.SendSuspensionWarningsCommand{
				DaysBefore: billing.WarnDaysBefore,
				Limit:      billing.BatchLimit,
			})
			if err != nil {
				return 0, err
			}
			return processed(report), nil
		}),
		Suspensions: scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			report, err := ucs.SuspendExpiredGracePeriods.Execute(ctx, usecases.SuspendExpiredGracePeriodsCommand{Limit: billing.BatchLimit})
			if err != nil {
				return 0, err
			}
			return processed(report), nil
		}),
		Expiries: scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			report, err := ucs.ExpireSubscriptions.Execute(ctx, usecases.ExpireSubscriptionsCommand{Limit: billing.BatchLimit})
			if err != nil {
				return 0, err
			}
			return processed(report), nil
		}),
	}
}
