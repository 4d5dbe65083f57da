package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	apperrors "github.com/orris-inc/billing/internal/shared/errors"
)

type CancelChangeCommand struct {
	ChangeSID string
}

type CancelChangeUseCase struct {
	planChangeBase
}

func NewCancelChangeUseCase(deps PlanChangeDeps) *CancelChangeUseCase {
	return &CancelChangeUseCase{planChangeBase: newPlanChangeBase(deps)}
}

// Execute cancels a Scheduled plan change. It returns false without error
// when the change has already completed or been cancelled.
func (uc *CancelChangeUseCase) Execute(ctx context.Context, cmd CancelChangeCommand) (bool, error) {
	existing, err := uc.PlanChangeRepo.GetBySID(ctx, cmd.ChangeSID)
	if err != nil {
		return false, fmt.Errorf("failed to get plan change: %w", err)
	}
	if existing == nil {
		return false, apperrors.NewNotFoundError("plan change not found", cmd.ChangeSID)
	}

	var cancelled *subscription.PlanChange
	err = uc.TxMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.lockSubscription(txCtx, existing.SubscriptionID())
		if err != nil {
			return err
		}
		// Reload under the subscription lock; a renewal may have completed it.
		change, err := uc.PlanChangeRepo.GetBySID(txCtx, cmd.ChangeSID)
		if err != nil {
			return fmt.Errorf("failed to get plan change: %w", err)
		}
		if change == nil {
			return subscription.ErrPlanChangeNotFound
		}
		if !change.IsScheduled() {
			return nil
		}

		now := uc.now()
		if err := change.Cancel(now); err != nil {
			return err
		}
		if err := uc.PlanChangeRepo.Update(txCtx, change); err != nil {
			return fmt.Errorf("failed to update plan change: %w", err)
		}

		if scheduled := sub.ScheduledChange(); change.ExecutionType() == vo.ExecutionScheduled &&
			scheduled != nil && scheduled.PlanID() == change.ToPlanID() {
			sub.ClearScheduledPlanChange()
			if err := uc.SubscriptionRepo.Update(txCtx, sub); err != nil {
				return fmt.Errorf("failed to update subscription: %w", err)
			}
		}
		cancelled = change
		return nil
	})
	if err != nil {
		uc.Logger.Errorw("failed to cancel plan change", "plan_change_id", cmd.ChangeSID, "error", err)
		return false, toAppError(err)
	}

	if cancelled == nil {
		uc.Logger.Infow("plan change not cancellable",
			"plan_change_id", cmd.ChangeSID,
			"status", existing.Status(),
		)
		return false, nil
	}
	uc.Metrics.PlanChange(string(cancelled.ChangeType()), string(cancelled.ExecutionType()), string(cancelled.Status()))
	uc.Logger.Infow("plan change cancelled",
		"plan_change_id", cmd.ChangeSID,
		"subscription_id", existing.SubscriptionID(),
	)
	return true, nil
}
