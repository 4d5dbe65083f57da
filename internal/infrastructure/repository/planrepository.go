package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) subscription.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *subscription.Plan) error {
	model := r.mapper.ToModel(plan)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan", "sid", model.SID, "error", err)
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return plan.SetID(model.ID)
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *PlanRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.Plan, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid))
}

func (r *PlanRepositoryImpl) first(query *gorm.DB) (*subscription.Plan, error) {
	var model models.PlanModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan", "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return r.mapper.ToEntity(&model)
}
