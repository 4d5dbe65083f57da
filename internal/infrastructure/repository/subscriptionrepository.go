package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model := r.mapper.ToModel(subscriptionEntity)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := subscriptionEntity.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set subscription ID", "error", err)
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created successfully", "id", model.ID, "sid", model.SID, "user_id", model.UserID)
	return nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model := r.mapper.ToModel(subscriptionEntity)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"plan_id":                  model.PlanID,
			"status":                   model.Status,
			"starts_at":                model.StartsAt,
			"expires_at":               model.ExpiresAt,
			"next_renewal_at":          model.NextRenewalAt,
			"last_renewal_at":          model.LastRenewalAt,
			"scheduled_plan_id":        model.ScheduledPlanID,
			"plan_change_scheduled_at": model.PlanChangeScheduledAt,
			"auto_renew":               model.AutoRenew,
			"payment_failed_at":        model.PaymentFailedAt,
			"payment_failure_count":    model.PaymentFailureCount,
			"suspension_warning_sent":  model.SuspensionWarningSent,
			"credit_balance_minor":     model.CreditBalanceMinor,
			"service_account_id":       model.ServiceAccountID,
			"cancel_reason":            model.CancelReason,
			"cancelled_at":             model.CancelledAt,
			"version":                  model.Version,
			"updated_at":               model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	r.logger.Debugw("subscription updated", "id", model.ID, "status", model.Status, "version", model.Version)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "id", id)
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid), "sid", sid)
}

func (r *SubscriptionRepositoryImpl) GetByIDForUpdate(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.first(ctx, forUpdate(db.GetTxFromContext(ctx, r.db)).Where("id = ?", id), "id", id)
}

func (r *SubscriptionRepositoryImpl) first(ctx context.Context, query *gorm.DB, key string, value any) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription", key, value, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map subscription model to entity", key, value, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) FindDueForRenewal(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uint, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("status = ? AND auto_renew = ?", vo.StatusActive.String(), true).
		Where(
			"(payment_failed_at IS NULL AND (expires_at <= ? OR next_renewal_at <= ?)) OR (payment_failed_at IS NOT NULL AND next_renewal_at <= ?)",
			now.Add(window), now, now,
		)
	return r.pluckIDs(query, limit, "due for renewal")
}

func (r *SubscriptionRepositoryImpl) FindReadyForSuspension(ctx context.Context, cutoff time.Time, limit int) ([]uint, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("status = ? AND payment_failed_at IS NOT NULL AND expires_at <= ?", vo.StatusActive.String(), cutoff)
	return r.pluckIDs(query, limit, "ready for suspension")
}

func (r *SubscriptionRepositoryImpl) FindNeedingSuspensionWarning(ctx context.Context, from, to time.Time, limit int) ([]uint, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("status = ? AND payment_failed_at IS NOT NULL AND suspension_warning_sent = ?", vo.StatusActive.String(), false).
		Where("expires_at > ? AND expires_at <= ?", from, to)
	return r.pluckIDs(query, limit, "needing suspension warning")
}

func (r *SubscriptionRepositoryImpl) FindLapsed(ctx context.Context, now time.Time, limit int) ([]uint, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("status = ? AND auto_renew = ? AND payment_failed_at IS NULL AND expires_at <= ?", vo.StatusActive.String(), false, now)
	return r.pluckIDs(query, limit, "lapsed")
}

func (r *SubscriptionRepositoryImpl) pluckIDs(query *gorm.DB, limit int, selection string) ([]uint, error) {
	var ids []uint
	if err := applyLimit(query.Order("id ASC"), limit).Pluck("id", &ids).Error; err != nil {
		r.logger.Errorw("failed to select subscriptions", "selection", selection, "error", err)
		return nil, fmt.Errorf("failed to select subscriptions %s: %w", selection, err)
	}
	return ids, nil
}
