package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/id"
)

// Plan is the billing view of a catalog plan. Price and duration are fixed for
// the lifetime of a plan row; the catalog creates a new plan rather than
// repricing one.
type Plan struct {
	id           uint
	sid          string
	name         string
	price        ledger.Money
	durationDays int
	isActive     bool
	createdAt    time.Time
	updatedAt    time.Time
}

func NewPlan(name string, price ledger.Money, durationDays int) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidPlan)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidPlan, durationDays)
	}
	if price.Currency() == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, ledger.ErrInvalidCurrency)
	}

	now := biztime.NowUTC()
	return &Plan{
		sid:          id.NewPlanID(),
		name:         name,
		price:        price,
		durationDays: durationDays,
		isActive:     true,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func ReconstructPlan(planID uint, sid, name string, price ledger.Money, durationDays int,
	isActive bool, createdAt, updatedAt time.Time) (*Plan, error) {
	if planID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: plan %d has duration %d", ErrInvalidPlan, planID, durationDays)
	}
	return &Plan{
		id:           planID,
		sid:          sid,
		name:         name,
		price:        price,
		durationDays: durationDays,
		isActive:     isActive,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func (p *Plan) ID() uint             { return p.id }
func (p *Plan) SID() string          { return p.sid }
func (p *Plan) Name() string         { return p.name }
func (p *Plan) Price() ledger.Money  { return p.price }
func (p *Plan) DurationDays() int    { return p.durationDays }
func (p *Plan) IsActive() bool       { return p.isActive }
func (p *Plan) CreatedAt() time.Time { return p.createdAt }
func (p *Plan) UpdatedAt() time.Time { return p.updatedAt }

func (p *Plan) SetID(planID uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	p.id = planID
	return nil
}

func (p *Plan) Deactivate() {
	p.isActive = false
	p.updatedAt = biztime.NowUTC()
}

// PeriodFrom is the service period a purchase of this plan at start buys.
func (p *Plan) PeriodFrom(start time.Time) ledger.BillingPeriod {
	return ledger.PeriodFrom(start, p.durationDays)
}
