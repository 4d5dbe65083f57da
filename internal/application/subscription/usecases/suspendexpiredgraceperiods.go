package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type SuspendExpiredGracePeriodsCommand struct {
	Limit  int
	DryRun bool
}

// SuspendExpiredGracePeriodsUseCase suspends failing subscriptions whose
// grace period is over and asks provisioning to suspend their accounts.
type SuspendExpiredGracePeriodsUseCase struct {
	subscriptionRepo subscription.Repository
	txMgr            TransactionManager
	queue            ProvisioningQueue
	notifier         NotificationDispatcher
	policy           subscription.GracePeriodPolicy
	metrics          MetricsRecorder
	logger           logger.Interface
	now              func() time.Time
}

func NewSuspendExpiredGracePeriodsUseCase(
	subscriptionRepo subscription.Repository,
	txMgr TransactionManager,
	queue ProvisioningQueue,
	notifier NotificationDispatcher,
	policy subscription.GracePeriodPolicy,
	logger logger.Interface,
) *SuspendExpiredGracePeriodsUseCase {
	return &SuspendExpiredGracePeriodsUseCase{
		subscriptionRepo: subscriptionRepo,
		txMgr:            txMgr,
		queue:            queue,
		notifier:         notifier,
		policy:           policy,
		metrics:          NoopMetrics(),
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

// SetMetrics sets the metrics recorder (optional).
func (uc *SuspendExpiredGracePeriodsUseCase) SetMetrics(m MetricsRecorder) {
	if m != nil {
		uc.metrics = m
	}
}

func (uc *SuspendExpiredGracePeriodsUseCase) Execute(ctx context.Context, cmd SuspendExpiredGracePeriodsCommand) (*BatchReport, error) {
	now := uc.now()
	report := newBatchReport("suspend_expired_grace_periods", cmd.DryRun, now)

	ids, err := uc.subscriptionRepo.FindReadyForSuspension(ctx, uc.policy.SuspensionCutoff(now), cmd.Limit)
	if err != nil {
		uc.logger.Errorw("failed to select subscriptions for suspension", "error", err, "stage", StageSelect)
		return nil, fmt.Errorf("failed to select subscriptions for suspension: %w", err)
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
			return uc.suspendOne(ctx, subscriptionID, stage)
		}))
	}

	report.FinishedAt = uc.now()
	if report.Selected > 0 {
		uc.logger.Infow("grace period suspensions processed",
			"selected", report.Selected,
			"suspended", report.Count(OutcomeSuspended),
			"skipped", report.Count(OutcomeSkipped),
			"errored", report.Count(OutcomeErrored),
			"dry_run", cmd.DryRun,
		)
	}
	return report, nil
}

func (uc *SuspendExpiredGracePeriodsUseCase) suspendOne(ctx context.Context, subscriptionID uint, stage *string) BatchItem {
	var suspended *subscription.Subscription
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}

		now := uc.now()
		if !uc.policy.ReadyForSuspension(sub, now) {
			return nil
		}

		*stage = StageCommit
		if err := sub.Suspend(now); err != nil {
			return err
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		suspended = sub
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to suspend subscription",
			"subscription_id", subscriptionID,
			"stage", *stage,
			"error", err,
		)
		return erroredItem(*stage, err)
	}
	if suspended == nil {
		return BatchItem{Outcome: OutcomeSkipped, Detail: "no longer ready for suspension"}
	}

	uc.metrics.SubscriptionSuspended()
	uc.logger.Infow("subscription suspended after grace period",
		"subscription_id", subscriptionID,
		"expires_at", suspended.ExpiresAt(),
		"failure_count", suspended.PaymentHealth().FailureCount(),
	)

	item := BatchItem{SubscriptionSID: suspended.SID(), Outcome: OutcomeSuspended}
	if suspended.ServiceAccountID() != "" {
		*stage = StageEnqueue
		if err := uc.queue.Enqueue(ctx, ProvisioningInstruction{
			Action:           ProvisioningSuspend,
			SubscriptionID:   suspended.ID(),
			SubscriptionSID:  suspended.SID(),
			ServiceAccountID: suspended.ServiceAccountID(),
			RequestedAt:      uc.now(),
		}); err != nil {
			uc.logger.Warnw("failed to enqueue account suspension",
				"subscription_id", subscriptionID,
				"service_account_id", suspended.ServiceAccountID(),
				"stage", StageEnqueue,
				"error", err,
			)
			item.Detail = "provisioning enqueue failed"
		}
	}

	*stage = StageNotify
	if err := uc.notifier.Send(ctx, suspended.UserID(), NotificationSubscriptionSuspended, map[string]any{
		"subscription_sid": suspended.SID(),
		"expired_at":       biztime.FormatDate(suspended.ExpiresAt()),
	}); err != nil {
		uc.logger.Warnw("failed to queue suspension notification",
			"subscription_id", subscriptionID,
			"stage", StageNotify,
			"error", err,
		)
	}
	return item
}
