package subscription

import (
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/ledger"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/id"
)

// PlanChange is the audit record of one plan transition. Only its status
// moves after creation, and it never returns to Scheduled.
type PlanChange struct {
	id             uint
	sid            string
	subscriptionID uint
	fromPlanID     uint
	toPlanID       uint
	changeType     vo.ChangeType
	executionType  vo.ExecutionType
	status         vo.PlanChangeStatus
	creditAmount   ledger.Money
	amountDue      ledger.Money
	scheduledAt    time.Time
	pricedUntil    *time.Time
	completedAt    *time.Time
	cancelledAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewPlanChange creates a change in status Scheduled.
func NewPlanChange(subscriptionID, fromPlanID, toPlanID uint, changeType vo.ChangeType,
	executionType vo.ExecutionType, creditAmount, amountDue ledger.Money, scheduledAt time.Time) (*PlanChange, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if fromPlanID == toPlanID {
		return nil, ErrSamePlan
	}
	if creditAmount.Currency() != amountDue.Currency() {
		return nil, ledger.ErrCurrencyMismatch
	}

	now := biztime.NowUTC()
	return &PlanChange{
		sid:            id.NewPlanChangeID(),
		subscriptionID: subscriptionID,
		fromPlanID:     fromPlanID,
		toPlanID:       toPlanID,
		changeType:     changeType,
		executionType:  executionType,
		status:         vo.PlanChangeScheduled,
		creditAmount:   creditAmount,
		amountDue:      amountDue,
		scheduledAt:    scheduledAt,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// PlanChangeSnapshot carries persisted state into ReconstructPlanChange.
type PlanChangeSnapshot struct {
	ID             uint
	SID            string
	SubscriptionID uint
	FromPlanID     uint
	ToPlanID       uint
	ChangeType     vo.ChangeType
	ExecutionType  vo.ExecutionType
	Status         vo.PlanChangeStatus
	CreditAmount   ledger.Money
	AmountDue      ledger.Money
	ScheduledAt    time.Time
	PricedUntil    *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructPlanChange(s PlanChangeSnapshot) (*PlanChange, error) {
	if s.ID == 0 {
		return nil, fmt.Errorf("plan change ID cannot be zero")
	}
	return &PlanChange{
		id:             s.ID,
		sid:            s.SID,
		subscriptionID: s.SubscriptionID,
		fromPlanID:     s.FromPlanID,
		toPlanID:       s.ToPlanID,
		changeType:     s.ChangeType,
		executionType:  s.ExecutionType,
		status:         s.Status,
		creditAmount:   s.CreditAmount,
		amountDue:      s.AmountDue,
		scheduledAt:    s.ScheduledAt,
		pricedUntil:    s.PricedUntil,
		completedAt:    s.CompletedAt,
		cancelledAt:    s.CancelledAt,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}

func (c *PlanChange) ID() uint                        { return c.id }
func (c *PlanChange) SID() string                     { return c.sid }
func (c *PlanChange) SubscriptionID() uint            { return c.subscriptionID }
func (c *PlanChange) FromPlanID() uint                { return c.fromPlanID }
func (c *PlanChange) ToPlanID() uint                  { return c.toPlanID }
func (c *PlanChange) ChangeType() vo.ChangeType       { return c.changeType }
func (c *PlanChange) ExecutionType() vo.ExecutionType { return c.executionType }
func (c *PlanChange) Status() vo.PlanChangeStatus     { return c.status }
func (c *PlanChange) CreditAmount() ledger.Money      { return c.creditAmount }
func (c *PlanChange) AmountDue() ledger.Money         { return c.amountDue }
func (c *PlanChange) ScheduledAt() time.Time          { return c.scheduledAt }
func (c *PlanChange) PricedUntil() *time.Time         { return c.pricedUntil }
func (c *PlanChange) CompletedAt() *time.Time         { return c.completedAt }
func (c *PlanChange) CancelledAt() *time.Time         { return c.cancelledAt }
func (c *PlanChange) CreatedAt() time.Time            { return c.createdAt }
func (c *PlanChange) UpdatedAt() time.Time            { return c.updatedAt }
func (c *PlanChange) IsScheduled() bool               { return c.status == vo.PlanChangeScheduled }

func (c *PlanChange) SetID(changeID uint) error {
	if c.id != 0 {
		return fmt.Errorf("plan change ID is already set")
	}
	c.id = changeID
	return nil
}

// PriceAgainst pins the period end the amount due was prorated over.
func (c *PlanChange) PriceAgainst(expiresAt time.Time) {
	pinned := expiresAt
	c.pricedUntil = &pinned
}

// PricedFor reports whether the change is still valid for a subscription
// whose period ends at expiresAt. Unpinned changes always are.
func (c *PlanChange) PricedFor(expiresAt time.Time) bool {
	if c.pricedUntil == nil {
		return true
	}
	return c.pricedUntil.Truncate(time.Millisecond).Equal(expiresAt.Truncate(time.Millisecond))
}

// Complete marks the change as executed. Completing twice is a no-op.
func (c *PlanChange) Complete(now time.Time) error {
	switch c.status {
	case vo.PlanChangeCompleted:
		return nil
	case vo.PlanChangeCancelled:
		return fmt.Errorf("%w: %s is cancelled", ErrChangeNotPending, c.sid)
	}
	c.status = vo.PlanChangeCompleted
	completedAt := now
	c.completedAt = &completedAt
	c.updatedAt = now
	return nil
}

// Cancel is only valid while the change is still Scheduled.
func (c *PlanChange) Cancel(now time.Time) error {
	if c.status != vo.PlanChangeScheduled {
		return fmt.Errorf("%w: %s is %s", ErrChangeNotCancellable, c.sid, c.status)
	}
	c.status = vo.PlanChangeCancelled
	cancelledAt := now
	c.cancelledAt = &cancelledAt
	c.updatedAt = now
	return nil
}
