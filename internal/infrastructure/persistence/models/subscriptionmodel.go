package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID                    uint      `gorm:"primarykey"`
	SID                   string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	UserID                uint      `gorm:"not null;index:idx_user_subscription"`
	PlanID                uint      `gorm:"not null;index:idx_plan_subscription"`
	Status                string    `gorm:"not null;size:20;index:idx_status_renewal,priority:1"`
	StartsAt              time.Time `gorm:"not null"`
	ExpiresAt             time.Time `gorm:"not null;index:idx_expires_at"`
	NextRenewalAt         time.Time `gorm:"not null;index:idx_status_renewal,priority:2"`
	LastRenewalAt         *time.Time
	ScheduledPlanID       *uint
	PlanChangeScheduledAt *time.Time
	AutoRenew             bool `gorm:"not null;default:true"`
	PaymentFailedAt       *time.Time
	PaymentFailureCount   int     `gorm:"not null;default:0"`
	SuspensionWarningSent bool    `gorm:"not null;default:false"`
	CreditBalanceMinor    int64   `gorm:"not null;default:0"`
	Currency              string  `gorm:"not null;size:3"`
	ServiceAccountID      string  `gorm:"size:100"`
	CancelReason          *string `gorm:"size:500"`
	CancelledAt           *time.Time
	Version               int `gorm:"not null;default:1"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
