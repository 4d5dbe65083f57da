package models

import (
	"time"

	"github.com/orris-inc/billing/internal/shared/constants"
)

type PlanModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: plan_xxx"`
	Name         string `gorm:"not null;size:100"`
	PriceMinor   int64  `gorm:"not null;comment:price in the currency's minor unit"`
	Currency     string `gorm:"not null;size:3"`
	DurationDays int    `gorm:"not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PlanModel) TableName() string {
	return constants.TablePlans
}
