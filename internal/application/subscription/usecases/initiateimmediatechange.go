package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/proration"
	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

type InitiateImmediateChangeCommand struct {
	SubscriptionSID string
	NewPlanSID      string
	// Gateway is the provider the caller will collect payment through when
	// the change costs money. Optional.
	Gateway string
}

// InitiateImmediateChangeUseCase starts a plan change that takes effect now.
// A change that costs nothing is applied at once and any unused value is
// credited; one that costs money waits for CompleteImmediateChangeUseCase.
type InitiateImmediateChangeUseCase struct {
	planChangeBase
}

func NewInitiateImmediateChangeUseCase(deps PlanChangeDeps) *InitiateImmediateChangeUseCase {
	return &InitiateImmediateChangeUseCase{planChangeBase: newPlanChangeBase(deps)}
}

func (uc *InitiateImmediateChangeUseCase) Execute(ctx context.Context, cmd InitiateImmediateChangeCommand) (*dto.ImmediateChangeDTO, error) {
	if cmd.Gateway != "" {
		if _, err := ledger.ParseGatewayName(cmd.Gateway); err != nil {
			return nil, toAppError(err)
		}
	}
	subID, err := uc.subscriptionIDBySID(ctx, cmd.SubscriptionSID)
	if err != nil {
		return nil, err
	}

	var (
		sub      *subscription.Subscription
		change   *subscription.PlanChange
		result   *proration.Result
		from, to *subscription.Plan
	)
	err = uc.TxMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		locked, err := uc.lockSubscription(txCtx, subID)
		if err != nil {
			return err
		}
		now := uc.now()

		current, target, preview, err := uc.prepare(txCtx, locked, cmd.NewPlanSID, now)
		if err != nil {
			return err
		}
		if err := uc.cancelPending(txCtx, locked, now); err != nil {
			return err
		}

		pending, err := subscription.NewPlanChange(locked.ID(), current.ID(), target.ID(), preview.Type,
			vo.ExecutionImmediate, preview.CreditToApply, preview.AmountDue, now)
		if err != nil {
			return err
		}
		pending.PriceAgainst(locked.ExpiresAt())

		if !preview.AmountDue.IsPositive() {
			if err := locked.ChangePlan(target.ID()); err != nil {
				return err
			}
			if err := locked.AddCredit(preview.CreditToApply); err != nil {
				return err
			}
			if err := pending.Complete(now); err != nil {
				return err
			}
		}

		if err := uc.PlanChangeRepo.Create(txCtx, pending); err != nil {
			return fmt.Errorf("failed to create plan change: %w", err)
		}
		if err := uc.SubscriptionRepo.Update(txCtx, locked); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}

		sub, change, result, from, to = locked, pending, preview, current, target
		return nil
	})
	if err != nil {
		uc.Logger.Warnw("failed to initiate immediate plan change",
			"subscription_sid", cmd.SubscriptionSID,
			"plan_sid", cmd.NewPlanSID,
			"error", err,
		)
		return nil, toAppError(err)
	}

	uc.Metrics.PlanChange(string(change.ChangeType()), string(change.ExecutionType()), string(change.Status()))
	requiresPayment := change.IsScheduled()
	if !requiresPayment {
		uc.notifyPlanChanged(ctx, sub, change, from, to)
	}
	uc.Logger.Infow("immediate plan change initiated",
		"subscription_id", subID,
		"plan_change_id", change.SID(),
		"requires_payment", requiresPayment,
		"amount_due", result.AmountDue.String(),
		"credit_applied", result.CreditToApply.String(),
	)

	return &dto.ImmediateChangeDTO{
		RequiresPayment: requiresPayment,
		AmountDue:       dto.ToMoneyDTO(result.AmountDue),
		Gateway:         cmd.Gateway,
		PlanChange:      dto.ToPlanChangeDTO(change, sub.SID(), from.SID(), to.SID()),
		Proration:       dto.ToProrationDTO(result),
	}, nil
}
