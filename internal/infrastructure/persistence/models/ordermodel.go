package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/orris-inc/billing/internal/shared/constants"
)

// OrderModel is append-only: rows are inserted and never updated.
type OrderModel struct {
	ID             uint   `gorm:"primarykey"`
	OrderNo        string `gorm:"uniqueIndex;not null;size:50"`
	SubscriptionID uint   `gorm:"not null;index:idx_order_subscription,priority:1"`
	UserID         uint   `gorm:"not null;index"`
	Status         string `gorm:"not null;size:20;index:idx_order_subscription,priority:2"`
	PaymentGateway string `gorm:"not null;size:20"`
	// GatewayMetadata holds the authorization data needed for off-session charges.
	GatewayMetadata datatypes.JSON
	AmountMinor     int64  `gorm:"not null"`
	Currency        string `gorm:"not null;size:3"`
	Reference       string `gorm:"size:100"`
	TransactionID   string `gorm:"size:100"`
	CreatedAt       time.Time
}

func (OrderModel) TableName() string {
	return constants.TableOrders
}
