package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/proration"
	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/shared/biztime"
	apperrors "github.com/orris-inc/billing/internal/shared/errors"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// PlanChangeDeps are the collaborators shared by the plan change use cases.
type PlanChangeDeps struct {
	SubscriptionRepo subscription.Repository
	PlanRepo         subscription.PlanRepository
	PlanChangeRepo   subscription.PlanChangeRepository
	TxMgr            TransactionManager
	Notifier         NotificationDispatcher
	Metrics          MetricsRecorder
	Logger           logger.Interface
}

type planChangeBase struct {
	PlanChangeDeps
	now func() time.Time
}

func newPlanChangeBase(deps PlanChangeDeps) planChangeBase {
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics()
	}
	return planChangeBase{PlanChangeDeps: deps, now: biztime.NowUTC}
}

func (b *planChangeBase) subscriptionIDBySID(ctx context.Context, sid string) (uint, error) {
	sub, err := b.SubscriptionRepo.GetBySID(ctx, sid)
	if err != nil {
		return 0, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return 0, apperrors.NewNotFoundError("subscription not found", sid)
	}
	return sub.ID(), nil
}

func (b *planChangeBase) lockSubscription(ctx context.Context, id uint) (*subscription.Subscription, error) {
	sub, err := b.SubscriptionRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock subscription: %w", err)
	}
	if sub == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (b *planChangeBase) plan(ctx context.Context, id uint) (*subscription.Plan, error) {
	plan, err := b.PlanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("plan %d: %w", id, subscription.ErrPlanNotFound)
	}
	return plan, nil
}

// targetPlan loads the plan a customer asked to move to and checks it can be
// sold.
func (b *planChangeBase) targetPlan(ctx context.Context, sub *subscription.Subscription, planSID string) (*subscription.Plan, error) {
	plan, err := b.PlanRepo.GetBySID(ctx, planSID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewNotFoundError("plan not found", planSID)
	}
	if plan.ID() == sub.PlanID() {
		return nil, subscription.ErrSamePlan
	}
	if !plan.IsActive() {
		return nil, subscription.ErrPlanInactive
	}
	return plan, nil
}

// prepare runs the checks every plan change starts with and returns the
// current plan, the target plan and the proration at now.
func (b *planChangeBase) prepare(ctx context.Context, sub *subscription.Subscription, planSID string,
	now time.Time) (*subscription.Plan, *subscription.Plan, *proration.Result, error) {
	if err := sub.EnsureCanChangePlan(now); err != nil {
		return nil, nil, nil, err
	}
	current, err := b.plan(ctx, sub.PlanID())
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := b.targetPlan(ctx, sub, planSID)
	if err != nil {
		return nil, nil, nil, err
	}
	result, err := proration.Calculate(proration.Input{
		CurrentPlan: current,
		NewPlan:     target,
		Now:         now,
		ExpiresAt:   sub.ExpiresAt(),
		Currency:    sub.Currency(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return current, target, result, nil
}

// cancelPending cancels every Scheduled plan change of sub and clears its
// scheduled plan, so at most one change is pending afterwards.
func (b *planChangeBase) cancelPending(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	pending, err := b.PlanChangeRepo.FindScheduledBySubscriptionID(ctx, sub.ID())
	if err != nil {
		return fmt.Errorf("failed to find scheduled plan changes: %w", err)
	}
	for _, change := range pending {
		if err := change.Cancel(now); err != nil {
			return err
		}
		if err := b.PlanChangeRepo.Update(ctx, change); err != nil {
			return fmt.Errorf("failed to cancel plan change: %w", err)
		}
		b.Logger.Infow("superseded plan change cancelled",
			"subscription_id", sub.ID(),
			"plan_change_id", change.SID(),
		)
		b.Metrics.PlanChange(string(change.ChangeType()), string(change.ExecutionType()), string(change.Status()))
	}
	sub.ClearScheduledPlanChange()
	return nil
}

func (b *planChangeBase) notifyPlanChanged(ctx context.Context, sub *subscription.Subscription,
	change *subscription.PlanChange, from, to *subscription.Plan) {
	data := map[string]any{
		"subscription_sid": sub.SID(),
		"from_plan":        from.Name(),
		"to_plan":          to.Name(),
		"change_type":      string(change.ChangeType()),
		"credit_amount":    change.CreditAmount().Format(),
		"amount_due":       change.AmountDue().Format(),
		"credit_balance":   sub.CreditBalance().Format(),
		"expires_at":       biztime.FormatDate(sub.ExpiresAt()),
	}
	if err := b.Notifier.Send(ctx, sub.UserID(), NotificationPlanChanged, data); err != nil {
		b.Logger.Warnw("failed to queue plan change notification",
			"subscription_id", sub.ID(),
			"plan_change_id", change.SID(),
			"error", err,
		)
	}
}
