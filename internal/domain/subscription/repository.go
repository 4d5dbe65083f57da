package subscription

import (
	"context"
	"time"
)

// Repository persists subscriptions. Get methods return nil, nil when the row
// does not exist. Selection methods return IDs only; the caller reloads each
// subscription under lock before acting on it.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, sid string) (*Subscription, error)
	// GetByIDForUpdate locks the row for the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*Subscription, error)

	// FindDueForRenewal mirrors Subscription.IsDueForRenewal.
	FindDueForRenewal(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uint, error)
	// FindReadyForSuspension returns active, failing subscriptions whose
	// expiry is at or before cutoff.
	FindReadyForSuspension(ctx context.Context, cutoff time.Time, limit int) ([]uint, error)
	// FindNeedingSuspensionWarning returns active, failing, unwarned
	// subscriptions expiring in (from, to].
	FindNeedingSuspensionWarning(ctx context.Context, from, to time.Time, limit int) ([]uint, error)
	// FindLapsed mirrors Subscription.IsLapsed.
	FindLapsed(ctx context.Context, now time.Time, limit int) ([]uint, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySID(ctx context.Context, sid string) (*Plan, error)
}

type PlanChangeRepository interface {
	Create(ctx context.Context, change *PlanChange) error
	Update(ctx context.Context, change *PlanChange) error
	GetByID(ctx context.Context, id uint) (*PlanChange, error)
	GetBySID(ctx context.Context, sid string) (*PlanChange, error)
	FindScheduledBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*PlanChange, error)
}
