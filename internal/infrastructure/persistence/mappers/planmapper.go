package mappers

import (
	"fmt"

	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
)

type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*subscription.Plan, error)
	ToModel(entity *subscription.Plan) *models.PlanModel
}

type PlanMapperImpl struct{}

func NewPlanMapper() PlanMapper {
	return &PlanMapperImpl{}
}

func (m *PlanMapperImpl) ToEntity(model *models.PlanModel) (*subscription.Plan, error) {
	if model == nil {
		return nil, nil
	}

	price, err := moneyFromColumns(model.PriceMinor, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("plan %d price: %w", model.ID, err)
	}

	return subscription.ReconstructPlan(model.ID, model.SID, model.Name, price, model.DurationDays,
		model.IsActive, model.CreatedAt, model.UpdatedAt)
}

func (m *PlanMapperImpl) ToModel(entity *subscription.Plan) *models.PlanModel {
	if entity == nil {
		return nil
	}
	return &models.PlanModel{
		ID:           entity.ID(),
		SID:          entity.SID(),
		Name:         entity.Name(),
		PriceMinor:   entity.Price().Minor(),
		Currency:     entity.Price().Currency().String(),
		DurationDays: entity.DurationDays(),
		IsActive:     entity.IsActive(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}
}

func moneyFromColumns(minor int64, code string) (ledger.Money, error) {
	cur, err := ledger.ParseCurrency(code)
	if err != nil {
		return ledger.Money{}, err
	}
	return ledger.NewMoney(minor, cur)
}
