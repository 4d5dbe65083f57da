package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

type ScheduleChangeCommand struct {
	SubscriptionSID string
	NewPlanSID      string
}

// ScheduleChangeUseCase queues a plan change for the subscription's next
// renewal. No money moves until then.
type ScheduleChangeUseCase struct {
	planChangeBase
}

func NewScheduleChangeUseCase(deps PlanChangeDeps) *ScheduleChangeUseCase {
	return &ScheduleChangeUseCase{planChangeBase: newPlanChangeBase(deps)}
}

func (uc *ScheduleChangeUseCase) Execute(ctx context.Context, cmd ScheduleChangeCommand) (*dto.PlanChangeDTO, error) {
	subID, err := uc.subscriptionIDBySID(ctx, cmd.SubscriptionSID)
	if err != nil {
		return nil, err
	}

	var (
		change   *subscription.PlanChange
		from, to *subscription.Plan
	)
	err = uc.TxMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.lockSubscription(txCtx, subID)
		if err != nil {
			return err
		}
		now := uc.now()

		current, target, preview, err := uc.prepare(txCtx, sub, cmd.NewPlanSID, now)
		if err != nil {
			return err
		}
		if err := uc.cancelPending(txCtx, sub, now); err != nil {
			return err
		}

		change, err = subscription.NewPlanChange(sub.ID(), current.ID(), target.ID(), preview.Type,
			vo.ExecutionScheduled, preview.CreditToApply, preview.AmountDue, sub.ExpiresAt())
		if err != nil {
			return err
		}
		if err := uc.PlanChangeRepo.Create(txCtx, change); err != nil {
			return fmt.Errorf("failed to create plan change: %w", err)
		}
		if err := sub.SchedulePlanChange(target.ID(), sub.ExpiresAt()); err != nil {
			return err
		}
		if err := uc.SubscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		from, to = current, target
		return nil
	})
	if err != nil {
		uc.Logger.Warnw("failed to schedule plan change",
			"subscription_sid", cmd.SubscriptionSID,
			"plan_sid", cmd.NewPlanSID,
			"error", err,
		)
		return nil, toAppError(err)
	}

	uc.Metrics.PlanChange(string(change.ChangeType()), string(change.ExecutionType()), string(change.Status()))
	uc.Logger.Infow("plan change scheduled",
		"subscription_id", subID,
		"plan_change_id", change.SID(),
		"from_plan_id", from.ID(),
		"to_plan_id", to.ID(),
		"scheduled_at", change.ScheduledAt(),
	)
	return dto.ToPlanChangeDTO(change, cmd.SubscriptionSID, from.SID(), to.SID()), nil
}
