package planchange

import (
	"context"

	"github.com/orris-inc/billing/internal/application/subscription/dto"
	"github.com/orris-inc/billing/internal/application/subscription/usecases"
)

// Use case interfaces for Handler - enables unit testing with mocks.

type scheduleChangeUseCase interface {
	Execute(ctx context.Context, cmd usecases.ScheduleChangeCommand) (*dto.PlanChangeDTO, error)
}

type initiateImmediateChangeUseCase interface {
	Execute(ctx context.Context, cmd usecases.InitiateImmediateChangeCommand) (*dto.ImmediateChangeDTO, error)
}

type completeImmediateChangeUseCase interface {
	Execute(ctx context.Context, cmd usecases.CompleteImmediateChangeCommand) (*dto.PlanChangeDTO, error)
}

type cancelChangeUseCase interface {
	Execute(ctx context.Context, cmd usecases.CancelChangeCommand) (bool, error)
}

type previewChangeUseCase interface {
	Execute(ctx context.Context, query usecases.PreviewChangeQuery) (*dto.ProrationDTO, error)
}

type reactivateSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd usecases.ReactivateSubscriptionCommand) error
}
