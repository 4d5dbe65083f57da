package http

import (
	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/domain/subscription"
	"github.com/orris-inc/billing/internal/infrastructure/repository"
	"github.com/orris-inc/billing/internal/shared/logger"
)

type repositories struct {
	subscriptionRepo subscription.Repository
	planRepo         subscription.PlanRepository
	planChangeRepo   subscription.PlanChangeRepository
	orderRepo        order.Repository
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(db *gorm.DB, log logger.Interface) *repositories {
	return &repositories{
		subscriptionRepo: repository.NewSubscriptionRepository(db, log),
		planRepo:         repository.NewPlanRepository(db, log),
		planChangeRepo:   repository.NewPlanChangeRepository(db, log),
		orderRepo:        repository.NewOrderRepository(db, log),
	}
}
