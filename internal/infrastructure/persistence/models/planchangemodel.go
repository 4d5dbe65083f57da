package models

import (
	"time"

	"github.com/orris-inc/billing/internal/shared/constants"
)

type PlanChangeModel struct {
	ID                uint      `gorm:"primarykey"`
	SID               string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: pchg_xxx"`
	SubscriptionID    uint      `gorm:"not null;index:idx_change_subscription,priority:1"`
	FromPlanID        uint      `gorm:"not null"`
	ToPlanID          uint      `gorm:"not null"`
	Type              string    `gorm:"not null;size:20"`
	ExecutionType     string    `gorm:"not null;size:20"`
	Status            string    `gorm:"not null;size:20;index:idx_change_subscription,priority:2"`
	CreditAmountMinor int64     `gorm:"not null;default:0"`
	AmountDueMinor    int64     `gorm:"not null;default:0"`
	Currency          string    `gorm:"not null;size:3"`
	ScheduledAt       time.Time `gorm:"not null"`
	PricedUntil       *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PlanChangeModel) TableName() string {
	return constants.TablePlanChanges
}
