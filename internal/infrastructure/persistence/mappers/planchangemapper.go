package mappers

import (
	"fmt"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/mapper"
)

type PlanChangeMapper interface {
	ToEntity(model *models.PlanChangeModel) (*subscription.PlanChange, error)
	ToModel(entity *subscription.PlanChange) *models.PlanChangeModel
	ToEntities(models []*models.PlanChangeModel) ([]*subscription.PlanChange, error)
}

type PlanChangeMapperImpl struct{}

func NewPlanChangeMapper() PlanChangeMapper {
	return &PlanChangeMapperImpl{}
}

func (m *PlanChangeMapperImpl) ToEntity(model *models.PlanChangeModel) (*subscription.PlanChange, error) {
	if model == nil {
		return nil, nil
	}

	changeType, err := vo.ParseChangeType(model.Type)
	if err != nil {
		return nil, err
	}
	executionType, err := vo.ParseExecutionType(model.ExecutionType)
	if err != nil {
		return nil, err
	}
	status, err := vo.ParsePlanChangeStatus(model.Status)
	if err != nil {
		return nil, err
	}
	credit, err := moneyFromColumns(model.CreditAmountMinor, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("credit amount: %w", err)
	}
	due, err := moneyFromColumns(model.AmountDueMinor, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("amount due: %w", err)
	}

	return subscription.ReconstructPlanChange(subscription.PlanChangeSnapshot{
		ID:             model.ID,
		SID:            model.SID,
		SubscriptionID: model.SubscriptionID,
		FromPlanID:     model.FromPlanID,
		ToPlanID:       model.ToPlanID,
		ChangeType:     changeType,
		ExecutionType:  executionType,
		Status:         status,
		CreditAmount:   credit,
		AmountDue:      due,
		ScheduledAt:    model.ScheduledAt,
		PricedUntil:    model.PricedUntil,
		CompletedAt:    model.CompletedAt,
		CancelledAt:    model.CancelledAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	})
}

func (m *PlanChangeMapperImpl) ToModel(entity *subscription.PlanChange) *models.PlanChangeModel {
	if entity == nil {
		return nil
	}
	return &models.PlanChangeModel{
		ID:                entity.ID(),
		SID:               entity.SID(),
		SubscriptionID:    entity.SubscriptionID(),
		FromPlanID:        entity.FromPlanID(),
		ToPlanID:          entity.ToPlanID(),
		Type:              string(entity.ChangeType()),
		ExecutionType:     string(entity.ExecutionType()),
		Status:            string(entity.Status()),
		CreditAmountMinor: entity.CreditAmount().Minor(),
		AmountDueMinor:    entity.AmountDue().Minor(),
		Currency:          entity.CreditAmount().Currency().String(),
		ScheduledAt:       entity.ScheduledAt(),
		PricedUntil:       entity.PricedUntil(),
		CompletedAt:       entity.CompletedAt(),
		CancelledAt:       entity.CancelledAt(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}
}

func (m *PlanChangeMapperImpl) ToEntities(modelList []*models.PlanChangeModel) ([]*subscription.PlanChange, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.PlanChangeModel) uint { return model.ID })
}
