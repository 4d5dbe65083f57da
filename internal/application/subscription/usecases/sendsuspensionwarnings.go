package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type SendSuspensionWarningsCommand struct {
	DaysBefore int
	Limit      int
	DryRun     bool
}

// SendSuspensionWarningsUseCase warns customers whose failing subscription is
// about to run out of grace. Each failure episode is warned at most once.
type SendSuspensionWarningsUseCase struct {
	subscriptionRepo subscription.Repository
	planRepo         subscription.PlanRepository
	txMgr            TransactionManager
	notifier         NotificationDispatcher
	policy           subscription.GracePeriodPolicy
	metrics          MetricsRecorder
	logger           logger.Interface
	now              func() time.Time
}

func NewSendSuspensionWarningsUseCase(
	subscriptionRepo subscription.Repository,
	planRepo subscription.PlanRepository,
	txMgr TransactionManager,
	notifier NotificationDispatcher,
	policy subscription.GracePeriodPolicy,
	logger logger.Interface,
) *SendSuspensionWarningsUseCase {
	return &SendSuspensionWarningsUseCase{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		txMgr:            txMgr,
		notifier:         notifier,
		policy:           policy,
		metrics:          NoopMetrics(),
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

// SetMetrics sets the metrics recorder (optional).
func (uc *SendSuspensionWarningsUseCase) SetMetrics(m MetricsRecorder) {
	if m != nil {
		uc.metrics = m
	}
}

func (uc *SendSuspensionWarningsUseCase) Execute(ctx context.Context, cmd SendSuspensionWarningsCommand) (*BatchReport, error) {
	if cmd.DaysBefore < 0 {
		return nil, fmt.Errorf("days before must not be negative, got %d", cmd.DaysBefore)
	}
	now := uc.now()
	report := newBatchReport("send_suspension_warnings", cmd.DryRun, now)

	from, to := uc.policy.WarningWindow(now, cmd.DaysBefore)
	ids, err := uc.subscriptionRepo.FindNeedingSuspensionWarning(ctx, from, to, cmd.Limit)
	if err != nil {
		uc.logger.Errorw("failed to select subscriptions for suspension warning", "error", err, "stage", StageSelect)
		return nil, fmt.Errorf("failed to select subscriptions for suspension warning: %w", err)
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
			return uc.warnOne(ctx, subscriptionID, cmd.DaysBefore, stage)
		}))
	}

	report.FinishedAt = uc.now()
	if report.Selected > 0 {
		uc.logger.Infow("suspension warnings processed",
			"selected", report.Selected,
			"warned", report.Count(OutcomeWarned),
			"skipped", report.Count(OutcomeSkipped),
			"errored", report.Count(OutcomeErrored),
			"dry_run", cmd.DryRun,
		)
	}
	return report, nil
}

// warnOne commits the warned flag, then queues the message. A send the
// dispatcher rejects revokes the flag again so the next run retries, which
// keeps delivery at most once per failure episode.
func (uc *SendSuspensionWarningsUseCase) warnOne(ctx context.Context, subscriptionID uint, daysBefore int, stage *string) BatchItem {
	var (
		sid          string
		userID       uint
		episodeStart time.Time
		data         map[string]any
	)
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
		if !uc.policy.NeedsSuspensionWarning(sub, now, daysBefore) {
			return nil
		}

		planName := ""
		if plan, err := uc.planRepo.GetByID(txCtx, sub.PlanID()); err == nil && plan != nil {
			planName = plan.Name()
		}

		*stage = StageCommit
		if err := sub.MarkSuspensionWarningSent(); err != nil {
			return err
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}

		userID = sub.UserID()
		episodeStart = *sub.PaymentHealth().FailedAt()
		data = map[string]any{
			"subscription_sid": sub.SID(),
			"plan_name":        planName,
			"suspends_at":      biztime.FormatDate(uc.policy.GraceEndsAt(sub)),
			"failure_count":    sub.PaymentHealth().FailureCount(),
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to send suspension warning",
			"subscription_id", subscriptionID,
			"stage", *stage,
			"error", err,
		)
		return erroredItem(*stage, err)
	}
	if data == nil {
		return BatchItem{SubscriptionSID: sid, Outcome: OutcomeSkipped, Detail: "no longer needs a warning"}
	}

	*stage = StageNotify
	if err := uc.notifier.Send(ctx, userID, NotificationSuspensionWarning, data); err != nil {
		err = fmt.Errorf("failed to queue suspension warning: %w", err)
		uc.logger.Errorw("failed to send suspension warning",
			"subscription_id", subscriptionID,
			"stage", *stage,
			"error", err,
		)
		uc.revokeWarning(ctx, subscriptionID, episodeStart)
		return erroredItem(*stage, err)
	}

	uc.metrics.SuspensionWarningSent()
	uc.logger.Infow("suspension warning sent", "subscription_id", subscriptionID)
	return BatchItem{SubscriptionSID: sid, Outcome: OutcomeWarned}
}

// revokeWarning clears a flag whose message never left. If this fails too
// the episode stays marked and no warning goes out for it.
func (uc *SendSuspensionWarningsUseCase) revokeWarning(ctx context.Context, subscriptionID uint, episodeStart time.Time) {
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if sub == nil || !sub.RevokeSuspensionWarning(episodeStart) {
			return nil
		}
		return uc.subscriptionRepo.Update(txCtx, sub)
	})
	if err != nil {
		uc.logger.Errorw("failed to revoke undelivered suspension warning",
			"subscription_id", subscriptionID,
			"error", err,
		)
	}
}
