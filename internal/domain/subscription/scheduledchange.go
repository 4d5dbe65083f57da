package subscription

import (
	"fmt"
	"time"
)

// ScheduledPlanChange is the pending plan swap carried on a subscription.
// Plan and time are set and cleared together; a subscription holds either a
// complete value or nil.
type ScheduledPlanChange struct {
	planID uint
	at     time.Time
}

func NewScheduledPlanChange(planID uint, at time.Time) (*ScheduledPlanChange, error) {
	if planID == 0 || at.IsZero() {
		return nil, fmt.Errorf("%w: plan=%d at=%v", ErrInvalidScheduledChange, planID, at)
	}
	return &ScheduledPlanChange{planID: planID, at: at}, nil
}

// ScheduledPlanChangeFromColumns rebuilds the composite from two nullable
// columns, failing when only one is set.
func ScheduledPlanChangeFromColumns(planID *uint, at *time.Time) (*ScheduledPlanChange, error) {
	switch {
	case planID == nil && at == nil:
		return nil, nil
	case planID == nil || at == nil:
		return nil, fmt.Errorf("%w: plan and time must be set together", ErrInvalidScheduledChange)
	}
	return NewScheduledPlanChange(*planID, *at)
}

func (c ScheduledPlanChange) PlanID() uint  { return c.planID }
func (c ScheduledPlanChange) At() time.Time { return c.at }

// DueBy reports whether the change takes effect at or before t.
func (c ScheduledPlanChange) DueBy(t time.Time) bool {
	return !c.at.After(t)
}
