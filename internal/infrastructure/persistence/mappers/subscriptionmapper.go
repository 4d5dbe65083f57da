package mappers

import (
	"fmt"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/mapper"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

// ToEntity rebuilds the aggregate. The scheduled change and payment health
// column groups must be fully set or fully empty.
func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status, err := vo.ParseSubscriptionStatus(model.Status)
	if err != nil {
		return nil, err
	}

	credit, err := moneyFromColumns(model.CreditBalanceMinor, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}

	scheduled, err := subscription.ScheduledPlanChangeFromColumns(model.ScheduledPlanID, model.PlanChangeScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("scheduled plan change: %w", err)
	}

	health, err := subscription.PaymentHealthFromColumns(model.PaymentFailedAt, model.PaymentFailureCount, model.SuspensionWarningSent)
	if err != nil {
		return nil, fmt.Errorf("payment health: %w", err)
	}

	var cancelReason string
	if model.CancelReason != nil {
		cancelReason = *model.CancelReason
	}

	entity, err := subscription.ReconstructSubscription(subscription.SubscriptionSnapshot{
		ID:               model.ID,
		SID:              model.SID,
		UserID:           model.UserID,
		PlanID:           model.PlanID,
		Status:           status,
		StartsAt:         model.StartsAt,
		ExpiresAt:        model.ExpiresAt,
		NextRenewalAt:    model.NextRenewalAt,
		LastRenewalAt:    model.LastRenewalAt,
		ScheduledChange:  scheduled,
		AutoRenew:        model.AutoRenew,
		PaymentHealth:    health,
		CreditBalance:    credit,
		ServiceAccountID: model.ServiceAccountID,
		CancelReason:     cancelReason,
		CancelledAt:      model.CancelledAt,
		Version:          model.Version,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}

	model := &models.SubscriptionModel{
		ID:                    entity.ID(),
		SID:                   entity.SID(),
		UserID:                entity.UserID(),
		PlanID:                entity.PlanID(),
		Status:                entity.Status().String(),
		StartsAt:              entity.StartsAt(),
		ExpiresAt:             entity.ExpiresAt(),
		NextRenewalAt:         entity.NextRenewalAt(),
		LastRenewalAt:         entity.LastRenewalAt(),
		AutoRenew:             entity.AutoRenew(),
		PaymentFailedAt:       entity.PaymentHealth().FailedAt(),
		PaymentFailureCount:   entity.PaymentHealth().FailureCount(),
		SuspensionWarningSent: entity.PaymentHealth().WarningSent(),
		CreditBalanceMinor:    entity.CreditBalance().Minor(),
		Currency:              entity.Currency().String(),
		ServiceAccountID:      entity.ServiceAccountID(),
		CancelledAt:           entity.CancelledAt(),
		Version:               entity.Version(),
		CreatedAt:             entity.CreatedAt(),
		UpdatedAt:             entity.UpdatedAt(),
	}

	if change := entity.ScheduledChange(); change != nil {
		planID, at := change.PlanID(), change.At()
		model.ScheduledPlanID = &planID
		model.PlanChangeScheduledAt = &at
	}
	if reason := entity.CancelReason(); reason != "" {
		model.CancelReason = &reason
	}

	return model
}

func (m *SubscriptionMapperImpl) ToEntities(modelList []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.SubscriptionModel) uint { return model.ID })
}
