package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type PlanChangeRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanChangeMapper
	logger logger.Interface
}

func NewPlanChangeRepository(db *gorm.DB, logger logger.Interface) subscription.PlanChangeRepository {
	return &PlanChangeRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanChangeMapper(),
		logger: logger,
	}
}

func (r *PlanChangeRepositoryImpl) Create(ctx context.Context, change *subscription.PlanChange) error {
	model := r.mapper.ToModel(change)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan change", "subscription_id", model.SubscriptionID, "error", err)
		return fmt.Errorf("failed to create plan change: %w", err)
	}
	if err := change.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set plan change ID: %w", err)
	}

	r.logger.Infow("plan change recorded",
		"sid", model.SID,
		"subscription_id", model.SubscriptionID,
		"type", model.Type,
		"execution_type", model.ExecutionType,
	)
	return nil
}

// Update persists the status transition; every other column is immutable.
func (r *PlanChangeRepositoryImpl) Update(ctx context.Context, change *subscription.PlanChange) error {
	model := r.mapper.ToModel(change)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanChangeModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"completed_at": model.CompletedAt,
			"cancelled_at": model.CancelledAt,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan change", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update plan change: %w", result.Error)
	}
	return nil
}

func (r *PlanChangeRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.PlanChange, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *PlanChangeRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.PlanChange, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid))
}

func (r *PlanChangeRepositoryImpl) FindScheduledBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*subscription.PlanChange, error) {
	var modelList []*models.PlanChangeModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ? AND status = ?", subscriptionID, string(vo.PlanChangeScheduled)).
		Order("id ASC").
		Find(&modelList).Error
	if err != nil {
		r.logger.Errorw("failed to list scheduled plan changes", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to list scheduled plan changes: %w", err)
	}
	return r.mapper.ToEntities(modelList)
}

func (r *PlanChangeRepositoryImpl) first(query *gorm.DB) (*subscription.PlanChange, error) {
	var model models.PlanChangeModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan change", "error", err)
		return nil, fmt.Errorf("failed to get plan change: %w", err)
	}
	return r.mapper.ToEntity(&model)
}
