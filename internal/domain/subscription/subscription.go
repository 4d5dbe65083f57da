package subscription

import (
	"fmt"
	"time"

	"github.com/orris-inc/billing/internal/domain/ledger"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/billing/internal/shared/biztime"
	"github.com/orris-inc/billing/internal/shared/id"
)

// DefaultRenewalLead is how long before expiry a renewal becomes due.
const DefaultRenewalLead = 24 * time.Hour

// Subscription is the aggregate root of the billing lifecycle. All state
// changes go through its methods; paired fields (scheduled change, payment
// health) are value types so a half-updated state cannot be built.
type Subscription struct {
	id               uint
	sid              string
	userID           uint
	planID           uint
	status           vo.SubscriptionStatus
	startsAt         time.Time
	expiresAt        time.Time
	nextRenewalAt    time.Time
	lastRenewalAt    *time.Time
	scheduledChange  *ScheduledPlanChange
	autoRenew        bool
	paymentHealth    PaymentHealth
	creditBalance    ledger.Money
	serviceAccountID string
	cancelReason     string
	cancelledAt      *time.Time
	version          int
	createdAt        time.Time
	updatedAt        time.Time
}

// NewSubscription creates a Pending subscription for plan starting at startsAt.
func NewSubscription(userID uint, plan *Plan, startsAt time.Time, autoRenew bool) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if !plan.IsActive() {
		return nil, ErrPlanInactive
	}

	expiresAt := startsAt.AddDate(0, 0, plan.DurationDays())
	now := biztime.NowUTC()
	return &Subscription{
		sid:           id.NewSubscriptionID(),
		userID:        userID,
		planID:        plan.ID(),
		status:        vo.StatusPending,
		startsAt:      startsAt,
		expiresAt:     expiresAt,
		nextRenewalAt: nextRenewalFor(expiresAt, startsAt, DefaultRenewalLead),
		autoRenew:     autoRenew,
		creditBalance: ledger.Zero(plan.Price().Currency()),
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// SubscriptionSnapshot carries persisted state into ReconstructSubscription.
type SubscriptionSnapshot struct {
	ID               uint
	SID              string
	UserID           uint
	PlanID           uint
	Status           vo.SubscriptionStatus
	StartsAt         time.Time
	ExpiresAt        time.Time
	NextRenewalAt    time.Time
	LastRenewalAt    *time.Time
	ScheduledChange  *ScheduledPlanChange
	AutoRenew        bool
	PaymentHealth    PaymentHealth
	CreditBalance    ledger.Money
	ServiceAccountID string
	CancelReason     string
	CancelledAt      *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func ReconstructSubscription(s SubscriptionSnapshot) (*Subscription, error) {
	if s.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if _, err := vo.ParseSubscriptionStatus(string(s.Status)); err != nil {
		return nil, err
	}
	if s.CreditBalance.Currency() == "" {
		return nil, fmt.Errorf("subscription %d: %w", s.ID, ledger.ErrInvalidCurrency)
	}
	return &Subscription{
		id:               s.ID,
		sid:              s.SID,
		userID:           s.UserID,
		planID:           s.PlanID,
		status:           s.Status,
		startsAt:         s.StartsAt,
		expiresAt:        s.ExpiresAt,
		nextRenewalAt:    s.NextRenewalAt,
		lastRenewalAt:    s.LastRenewalAt,
		scheduledChange:  s.ScheduledChange,
		autoRenew:        s.AutoRenew,
		paymentHealth:    s.PaymentHealth,
		creditBalance:    s.CreditBalance,
		serviceAccountID: s.ServiceAccountID,
		cancelReason:     s.CancelReason,
		cancelledAt:      s.CancelledAt,
		version:          s.Version,
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                              { return s.id }
func (s *Subscription) SID() string                           { return s.sid }
func (s *Subscription) UserID() uint                          { return s.userID }
func (s *Subscription) PlanID() uint                          { return s.planID }
func (s *Subscription) Status() vo.SubscriptionStatus         { return s.status }
func (s *Subscription) StartsAt() time.Time                   { return s.startsAt }
func (s *Subscription) ExpiresAt() time.Time                  { return s.expiresAt }
func (s *Subscription) NextRenewalAt() time.Time              { return s.nextRenewalAt }
func (s *Subscription) LastRenewalAt() *time.Time             { return s.lastRenewalAt }
func (s *Subscription) ScheduledChange() *ScheduledPlanChange { return s.scheduledChange }
func (s *Subscription) AutoRenew() bool                       { return s.autoRenew }
func (s *Subscription) PaymentHealth() PaymentHealth          { return s.paymentHealth }
func (s *Subscription) CreditBalance() ledger.Money           { return s.creditBalance }
func (s *Subscription) Currency() ledger.Currency             { return s.creditBalance.Currency() }
func (s *Subscription) ServiceAccountID() string              { return s.serviceAccountID }
func (s *Subscription) CancelReason() string                  { return s.cancelReason }
func (s *Subscription) CancelledAt() *time.Time               { return s.cancelledAt }
func (s *Subscription) Version() int                          { return s.version }
func (s *Subscription) CreatedAt() time.Time                  { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time                  { return s.updatedAt }
func (s *Subscription) IsActive() bool                        { return s.status == vo.StatusActive }
func (s *Subscription) ServicePeriod() ledger.BillingPeriod {
	return ledger.BillingPeriod{Start: s.startsAt, End: s.expiresAt}
}

// SetID is called by the repository after insert.
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) SetServiceAccountID(accountID string) {
	s.serviceAccountID = accountID
	s.touch(biztime.NowUTC())
}

func (s *Subscription) touch(now time.Time) {
	s.updatedAt = now
	s.version++
}

func (s *Subscription) transitionTo(target vo.SubscriptionStatus) error {
	if !s.status.CanTransitionTo(target) {
		return ErrInvalidTransition(s.status.String(), target.String())
	}
	s.status = target
	return nil
}

// Activate moves the subscription to Active and resets payment health as one
// unit. Calling it on an already active, healthy subscription changes nothing.
func (s *Subscription) Activate() error {
	if s.status == vo.StatusActive && !s.paymentHealth.IsFailing() {
		return nil
	}
	if s.status != vo.StatusActive {
		if err := s.transitionTo(vo.StatusActive); err != nil {
			return err
		}
	}
	s.paymentHealth = Healthy()
	s.touch(biztime.NowUTC())
	return nil
}

// RecordPaymentFailure opens a failure episode or extends the current one.
// The grace clock keeps running from the first failure.
func (s *Subscription) RecordPaymentFailure(now time.Time) error {
	if s.status != vo.StatusActive {
		return fmt.Errorf("%w: cannot record payment failure on %s subscription", ErrInvalidStatusTransition, s.status)
	}
	s.paymentHealth = s.paymentHealth.withFailure(now)
	s.touch(now)
	return nil
}

// DeferRenewal pushes the next renewal attempt to at.
func (s *Subscription) DeferRenewal(at time.Time) {
	s.nextRenewalAt = at
	s.touch(biztime.NowUTC())
}

// ExtendPeriod records a successful renewal: new expiry, renewal timestamps,
// and a cleared failure episode.
func (s *Subscription) ExtendPeriod(newExpiry, now time.Time, renewalLead time.Duration) error {
	if s.status.IsTerminal() {
		return ErrInvalidTransition(s.status.String(), vo.StatusActive.String())
	}
	if !newExpiry.After(now) {
		return fmt.Errorf("new expiry %s must be after now %s", newExpiry, now)
	}

	s.expiresAt = newExpiry
	renewedAt := now
	s.lastRenewalAt = &renewedAt
	s.nextRenewalAt = nextRenewalFor(newExpiry, now, renewalLead)
	s.touch(now)
	return s.Activate()
}

func nextRenewalFor(expiry, now time.Time, lead time.Duration) time.Time {
	next := expiry.Add(-lead)
	if next.Before(now) {
		return now
	}
	return next
}

// SchedulePlanChange records the plan to switch to at the given time,
// replacing any previous schedule.
func (s *Subscription) SchedulePlanChange(planID uint, at time.Time) error {
	if planID == s.planID {
		return ErrSamePlan
	}
	change, err := NewScheduledPlanChange(planID, at)
	if err != nil {
		return err
	}
	s.scheduledChange = change
	s.touch(biztime.NowUTC())
	return nil
}

func (s *Subscription) ClearScheduledPlanChange() {
	if s.scheduledChange == nil {
		return
	}
	s.scheduledChange = nil
	s.touch(biztime.NowUTC())
}

// ApplyScheduledPlanChange swaps to the scheduled plan if it is due by t and
// returns the plan that was applied.
func (s *Subscription) ApplyScheduledPlanChange(t time.Time) (uint, bool) {
	if s.scheduledChange == nil || !s.scheduledChange.DueBy(t) {
		return 0, false
	}
	planID := s.scheduledChange.PlanID()
	s.planID = planID
	s.scheduledChange = nil
	s.touch(biztime.NowUTC())
	return planID, true
}

// ChangePlan swaps the plan immediately and drops any scheduled change.
func (s *Subscription) ChangePlan(newPlanID uint) error {
	if s.status != vo.StatusActive {
		return &PlanChangeRejectedError{Reason: ReasonNotActive}
	}
	if newPlanID == 0 {
		return ErrInvalidPlan
	}
	if newPlanID == s.planID {
		return ErrSamePlan
	}
	s.planID = newPlanID
	s.scheduledChange = nil
	s.touch(biztime.NowUTC())
	return nil
}

func (s *Subscription) AddCredit(amount ledger.Money) error {
	balance, err := s.creditBalance.Add(amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	s.creditBalance = balance
	s.touch(biztime.NowUTC())
	return nil
}

// ConsumeCredit takes up to limit from the credit balance and returns the
// amount taken.
func (s *Subscription) ConsumeCredit(limit ledger.Money) (ledger.Money, error) {
	used := s.creditBalance.Min(limit)
	balance, err := s.creditBalance.Sub(used)
	if err != nil {
		return ledger.Money{}, err
	}
	if used.IsZero() {
		return used, nil
	}
	s.creditBalance = balance
	s.touch(biztime.NowUTC())
	return used, nil
}

func (s *Subscription) Suspend(now time.Time) error {
	if s.status == vo.StatusSuspended {
		return nil
	}
	if err := s.transitionTo(vo.StatusSuspended); err != nil {
		return err
	}
	s.touch(now)
	return nil
}

func (s *Subscription) Cancel(reason string, now time.Time) error {
	if s.status == vo.StatusCancelled {
		return nil
	}
	if err := s.transitionTo(vo.StatusCancelled); err != nil {
		return err
	}
	s.cancelReason = reason
	cancelledAt := now
	s.cancelledAt = &cancelledAt
	s.autoRenew = false
	s.scheduledChange = nil
	s.touch(now)
	return nil
}

func (s *Subscription) MarkAsExpired(now time.Time) error {
	if s.status == vo.StatusExpired {
		return nil
	}
	if err := s.transitionTo(vo.StatusExpired); err != nil {
		return err
	}
	s.scheduledChange = nil
	s.touch(now)
	return nil
}

func (s *Subscription) SetAutoRenew(autoRenew bool) {
	if s.autoRenew == autoRenew {
		return
	}
	s.autoRenew = autoRenew
	s.touch(biztime.NowUTC())
}

// MarkSuspensionWarningSent flags the current failure episode as warned.
// It fails when there is no episode or the warning was already recorded.
func (s *Subscription) MarkSuspensionWarningSent() error {
	health, err := s.paymentHealth.withWarning()
	if err != nil {
		return err
	}
	s.paymentHealth = health
	s.touch(biztime.NowUTC())
	return nil
}

// RevokeSuspensionWarning clears the warned flag of the failure episode that
// started at episodeStart, so a warning that could not be delivered is
// retried. It reports whether the flag was cleared.
func (s *Subscription) RevokeSuspensionWarning(episodeStart time.Time) bool {
	failedAt := s.paymentHealth.FailedAt()
	if failedAt == nil || !failedAt.Equal(episodeStart) || !s.paymentHealth.WarningSent() {
		return false
	}
	s.paymentHealth = s.paymentHealth.withoutWarning()
	s.touch(biztime.NowUTC())
	return true
}

// CanChangePlan reports whether a plan change is allowed at now and, if
// not, why.
func (s *Subscription) CanChangePlan(now time.Time) (bool, string) {
	if s.status != vo.StatusActive {
		return false, ReasonNotActive
	}
	if !s.expiresAt.After(now) {
		return false, ReasonExpired
	}
	return true, ""
}

// EnsureCanChangePlan is CanChangePlan as an error.
func (s *Subscription) EnsureCanChangePlan(now time.Time) error {
	if ok, reason := s.CanChangePlan(now); !ok {
		return &PlanChangeRejectedError{Reason: reason}
	}
	return nil
}

// IsDueForRenewal is the renewal selection predicate. A healthy subscription
// is due once expiry is within window or next_renewal_at has passed; one in a
// failure episode waits for next_renewal_at so retries stay spaced out.
func (s *Subscription) IsDueForRenewal(now time.Time, window time.Duration) bool {
	if !s.autoRenew || s.status != vo.StatusActive {
		return false
	}
	retryDue := !s.nextRenewalAt.After(now)
	if s.paymentHealth.IsFailing() {
		return retryDue
	}
	return !s.expiresAt.After(now.Add(window)) || retryDue
}

// IsLapsed reports an active subscription that reached expiry without
// auto-renew and without an open failure episode.
func (s *Subscription) IsLapsed(now time.Time) bool {
	return s.status == vo.StatusActive &&
		!s.autoRenew &&
		!s.paymentHealth.IsFailing() &&
		!s.expiresAt.After(now)
}
