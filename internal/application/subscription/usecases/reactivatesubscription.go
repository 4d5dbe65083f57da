package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/shared/biztime"
	apperrors "github.com/orris-inc/billing/internal/shared/errors"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type ReactivateSubscriptionCommand struct {
	SubscriptionSID string
}

// ReactivateSubscriptionUseCase brings a suspended subscription back after
// the customer settled. The next renewal run charges it.
type ReactivateSubscriptionUseCase struct {
	subscriptionRepo subscription.Repository
	txMgr            TransactionManager
	queue            ProvisioningQueue
	logger           logger.Interface
	now              func() time.Time
}

func NewReactivateSubscriptionUseCase(
	subscriptionRepo subscription.Repository,
	txMgr TransactionManager,
	queue ProvisioningQueue,
	logger logger.Interface,
) *ReactivateSubscriptionUseCase {
	return &ReactivateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		txMgr:            txMgr,
		queue:            queue,
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

func (uc *ReactivateSubscriptionUseCase) Execute(ctx context.Context, cmd ReactivateSubscriptionCommand) error {
	existing, err := uc.subscriptionRepo.GetBySID(ctx, cmd.SubscriptionSID)
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}
	if existing == nil {
		return apperrors.NewNotFoundError("subscription not found", cmd.SubscriptionSID)
	}

	var reactivated *subscription.Subscription
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, existing.ID())
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		if sub.Status() == vo.StatusActive {
			return nil
		}
		if sub.Status() != vo.StatusSuspended {
			return apperrors.NewConflictError("only suspended subscriptions can be reactivated", sub.Status().String())
		}

		if err := sub.Activate(); err != nil {
			return err
		}
		sub.SetAutoRenew(true)
		sub.DeferRenewal(uc.now())
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		reactivated = sub
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to reactivate subscription", "subscription_id", cmd.SubscriptionSID, "error", err)
		return toAppError(err)
	}
	if reactivated == nil {
		return nil
	}

	uc.logger.Infow("subscription reactivated", "subscription_id", reactivated.ID())
	if reactivated.ServiceAccountID() != "" {
		if err := uc.queue.Enqueue(ctx, ProvisioningInstruction{
			Action:           ProvisioningReactivate,
			SubscriptionID:   reactivated.ID(),
			SubscriptionSID:  reactivated.SID(),
			ServiceAccountID: reactivated.ServiceAccountID(),
			RequestedAt:      uc.now(),
		}); err != nil {
			uc.logger.Warnw("failed to enqueue account reactivation",
				"subscription_id", reactivated.ID(),
				"service_account_id", reactivated.ServiceAccountID(),
				"error", err,
			)
		}
	}
	return nil
}
