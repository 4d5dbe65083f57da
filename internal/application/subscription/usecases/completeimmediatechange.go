package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	apperrors "github.com/orris-inc/billing/internal/shared/errors"
)

// CompleteImmediateChangeCommand completes a pending immediate change. With
// a PaymentReference the payment was collected by the caller; without one
// the stored authorization is charged.
type CompleteImmediateChangeCommand struct {
	ChangeSID        string
	PaymentReference string
	TransactionID    string
	Gateway          string
	Metadata         map[string]any
}

type CompleteImmediateChangeUseCase struct {
	planChangeBase
	charger *RecurringCharger
}

func NewCompleteImmediateChangeUseCase(deps PlanChangeDeps, charger *RecurringCharger) *CompleteImmediateChangeUseCase {
	return &CompleteImmediateChangeUseCase{planChangeBase: newPlanChangeBase(deps), charger: charger}
}

// Execute is idempotent: completing a completed change returns it unchanged
// without charging again.
func (uc *CompleteImmediateChangeUseCase) Execute(ctx context.Context, cmd CompleteImmediateChangeCommand) (*dto.PlanChangeDTO, error) {
	var gateway ledger.GatewayName
	if cmd.PaymentReference != "" {
		g, err := ledger.ParseGatewayName(cmd.Gateway)
		if err != nil {
			return nil, toAppError(err)
		}
		gateway = g
	}

	existing, err := uc.PlanChangeRepo.GetBySID(ctx, cmd.ChangeSID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan change: %w", err)
	}
	if existing == nil {
		return nil, apperrors.NewNotFoundError("plan change not found", cmd.ChangeSID)
	}
	if existing.ExecutionType() != vo.ExecutionImmediate {
		return nil, apperrors.NewValidationError("only immediate plan changes can be completed")
	}

	var (
		sub      *subscription.Subscription
		change   *subscription.PlanChange
		from, to *subscription.Plan
		applied  bool
		paid     settledCharge
	)
	err = uc.TxMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		locked, err := uc.lockSubscription(txCtx, existing.SubscriptionID())
		if err != nil {
			return err
		}
		current, err := uc.PlanChangeRepo.GetBySID(txCtx, cmd.ChangeSID)
		if err != nil {
			return fmt.Errorf("failed to get plan change: %w", err)
		}
		if current == nil {
			return subscription.ErrPlanChangeNotFound
		}
		sub, change = locked, current

		if from, err = uc.plan(txCtx, change.FromPlanID()); err != nil {
			return err
		}
		if to, err = uc.plan(txCtx, change.ToPlanID()); err != nil {
			return err
		}

		switch change.Status() {
		case vo.PlanChangeCompleted:
			return nil
		case vo.PlanChangeCancelled:
			return fmt.Errorf("%w: %s was cancelled", subscription.ErrChangeNotPending, change.SID())
		}

		now := uc.now()
		if err := sub.EnsureCanChangePlan(now); err != nil {
			return err
		}
		if sub.PlanID() != change.FromPlanID() {
			return fmt.Errorf("%w: subscription is no longer on the plan the change was priced from",
				subscription.ErrChangeNotPending)
		}
		if !change.PricedFor(sub.ExpiresAt()) {
			return fmt.Errorf("%w: the billing period moved since the change was priced",
				subscription.ErrChangeNotPending)
		}

		if err := uc.collectPayment(txCtx, sub, change, gateway, cmd, &paid); err != nil {
			return err
		}

		if err := sub.ChangePlan(change.ToPlanID()); err != nil {
			return err
		}
		if err := change.Complete(now); err != nil {
			return err
		}
		if err := uc.PlanChangeRepo.Update(txCtx, change); err != nil {
			return fmt.Errorf("failed to update plan change: %w", err)
		}
		if err := uc.SubscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		uc.Logger.Warnw("failed to complete immediate plan change",
			"plan_change_id", cmd.ChangeSID,
			"error", err,
		)
		uc.charger.ReconcileUncommitted(ctx, &paid, err)
		return nil, toAppError(err)
	}

	if applied {
		uc.Metrics.PlanChange(string(change.ChangeType()), string(change.ExecutionType()), string(change.Status()))
		uc.notifyPlanChanged(ctx, sub, change, from, to)
		uc.Logger.Infow("immediate plan change completed",
			"subscription_id", sub.ID(),
			"plan_change_id", change.SID(),
			"to_plan_id", change.ToPlanID(),
			"amount_due", change.AmountDue().String(),
		)
	}
	return dto.ToPlanChangeDTO(change, sub.SID(), from.SID(), to.SID()), nil
}

func (uc *CompleteImmediateChangeUseCase) collectPayment(ctx context.Context, sub *subscription.Subscription,
	change *subscription.PlanChange, gateway ledger.GatewayName, cmd CompleteImmediateChangeCommand,
	paid *settledCharge) error {
	amount := change.AmountDue()
	if !amount.IsPositive() {
		return nil
	}

	if cmd.PaymentReference != "" {
		_, err := uc.charger.RecordExternalOrder(ctx, sub, gateway, amount,
			cmd.PaymentReference, cmd.TransactionID, cmd.Metadata)
		return err
	}

	auth, err := uc.charger.LookupAuthorization(ctx, sub.ID())
	if err != nil {
		return err
	}
	result, err := uc.charger.Charge(ctx, sub, auth, amount, purposeUpgrade)
	if errors.Is(err, paymentgateway.ErrChargePending) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChargeDeclined, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrChargeDeclined, result.FailureReason)
	}
	*paid = settledCharge{sub: sub, auth: auth, amount: amount, result: result}
	_, err = uc.charger.RecordOrder(ctx, sub, auth, amount, result)
	return err
}
