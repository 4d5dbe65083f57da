package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type OrderRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.OrderMapper
	logger logger.Interface
}

func NewOrderRepository(db *gorm.DB, logger logger.Interface) order.Repository {
	return &OrderRepositoryImpl{
		db:     db,
		mapper: mappers.NewOrderMapper(),
		logger: logger,
	}
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, orderEntity *order.Order) error {
	model, err := r.mapper.ToModel(orderEntity)
	if err != nil {
		r.logger.Errorw("failed to map order entity to model", "error", err)
		return fmt.Errorf("failed to map order entity: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create order", "order_no", model.OrderNo, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := orderEntity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set order ID: %w", err)
	}

	r.logger.Infow("order created",
		"order_no", model.OrderNo,
		"subscription_id", model.SubscriptionID,
		"gateway", model.PaymentGateway,
		"amount_minor", model.AmountMinor,
		"currency", model.Currency,
	)
	return nil
}

func (r *OrderRepositoryImpl) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("order_no = ?", orderNo))
}

func (r *OrderRepositoryImpl) FindLatestProvisioned(ctx context.Context, subscriptionID uint) (*order.Order, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ? AND status = ?", subscriptionID, order.StatusProvisioned.String()).
		Order("id DESC"))
}

func (r *OrderRepositoryImpl) first(query *gorm.DB) (*order.Order, error) {
	var model models.OrderModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get order", "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return r.mapper.ToEntity(&model)
}
