package usecases

import (
	"context"

	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/domain/subscription"
)

type PreviewChangeQuery struct {
	SubscriptionSID string
	NewPlanSID      string
}

// PreviewChangeUseCase prices a plan change without changing anything.
type PreviewChangeUseCase struct {
	planChangeBase
}

func NewPreviewChangeUseCase(deps PlanChangeDeps) *PreviewChangeUseCase {
	return &PreviewChangeUseCase{planChangeBase: newPlanChangeBase(deps)}
}

func (uc *PreviewChangeUseCase) Execute(ctx context.Context, query PreviewChangeQuery) (*dto.ProrationDTO, error) {
	sub, err := uc.SubscriptionRepo.GetBySID(ctx, query.SubscriptionSID)
	if err != nil {
		uc.Logger.Errorw("failed to get subscription", "error", err, "subscription_sid", query.SubscriptionSID)
		return nil, err
	}
	if sub == nil {
		return nil, toAppError(subscription.ErrSubscriptionNotFound)
	}

	_, _, result, err := uc.prepare(ctx, sub, query.NewPlanSID, uc.now())
	if err != nil {
		return nil, toAppError(err)
	}
	return dto.ToProrationDTO(result), nil
}
