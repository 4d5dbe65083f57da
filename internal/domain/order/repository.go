package order

import "context"

// Repository persists orders. Lookups return nil, nil when nothing matches.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	// FindLatestProvisioned returns nil, nil when the subscription has no
	// provisioned order.
	FindLatestProvisioned(ctx context.Context, subscriptionID uint) (*Order, error)
}
