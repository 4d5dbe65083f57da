package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type ExpireSubscriptionsCommand struct {
	Limit  int
	DryRun bool
}

// ExpireSubscriptionsUseCase expires active subscriptions that ran out with
// auto-renew turned off. Failing subscriptions are left to the grace period.
type ExpireSubscriptionsUseCase struct {
	subscriptionRepo subscription.Repository
	txMgr            TransactionManager
	metrics          MetricsRecorder
	logger           logger.Interface
	now              func() time.Time
}

func NewExpireSubscriptionsUseCase(
	subscriptionRepo subscription.Repository,
	txMgr TransactionManager,
	logger logger.Interface,
) *ExpireSubscriptionsUseCase {
	return &ExpireSubscriptionsUseCase{
		subscriptionRepo: subscriptionRepo,
		txMgr:            txMgr,
		metrics:          NoopMetrics(),
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

// SetMetrics sets the metrics recorder (optional).
func (uc *ExpireSubscriptionsUseCase) SetMetrics(m MetricsRecorder) {
	if m != nil {
		uc.metrics = m
	}
}

func (uc *ExpireSubscriptionsUseCase) Execute(ctx context.Context, cmd ExpireSubscriptionsCommand) (*BatchReport, error) {
	now := uc.now()
	report := newBatchReport("expire_subscriptions", cmd.DryRun, now)

	ids, err := uc.subscriptionRepo.FindLapsed(ctx, now, cmd.Limit)
	if err != nil {
		uc.logger.Errorw("failed to find lapsed subscriptions", "error", err, "stage", StageSelect)
		return nil, fmt.Errorf("failed to find lapsed subscriptions: %w", err)
	}
	report.Selected = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		subscriptionID := id
		report.add(processItem(ctx, uc.logger, subscriptionID, func(ctx context.Context, stage *string) BatchItem {
			if cmd.DryRun {
				return BatchItem{Outcome: OutcomeWouldProcess}
			}
			return uc.expireOne(ctx, subscriptionID, stage)
		}))
	}

	report.FinishedAt = uc.now()
	if report.Count(OutcomeExpired) > 0 {
		uc.logger.Infow("expired subscriptions",
			"count", report.Count(OutcomeExpired),
			"errored", report.Count(OutcomeErrored),
		)
	}
	return report, nil
}

func (uc *ExpireSubscriptionsUseCase) expireOne(ctx context.Context, subscriptionID uint, stage *string) BatchItem {
	var sid string
	expired := false
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		sid = sub.SID()

		now := uc.now()
		if !sub.IsLapsed(now) {
			return nil
		}
		*stage = StageCommit
		if err := sub.MarkAsExpired(now); err != nil {
			return err
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		expired = true
		return nil
	})
	if err != nil {
		uc.logger.Warnw("failed to expire subscription",
			"subscription_id", subscriptionID,
			"stage", *stage,
			"error", err,
		)
		return erroredItem(*stage, err)
	}
	if !expired {
		return BatchItem{SubscriptionSID: sid, Outcome: OutcomeSkipped, Detail: "no longer lapsed"}
	}
	uc.metrics.SubscriptionExpired()
	return BatchItem{SubscriptionSID: sid, Outcome: OutcomeExpired}
}
