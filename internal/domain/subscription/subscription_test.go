package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/domain/ledger"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

var (
	testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	usd     = ledger.MustParseCurrency("USD")
)

func newTestPlan(t *testing.T, planID uint, priceMinor int64, days int) *Plan {
	t.Helper()
	plan, err := ReconstructPlan(planID, "plan_test", "Test", ledger.MustMoney(priceMinor, usd), days, true, testNow, testNow)
	require.NoError(t, err)
	return plan
}

func newTestSubscription(t *testing.T, mutate func(s *SubscriptionSnapshot)) *Subscription {
	t.Helper()
	snap := SubscriptionSnapshot{
		ID:            1,
		SID:           "sub_test",
		UserID:        7,
		PlanID:        10,
		Status:        vo.StatusActive,
		StartsAt:      testNow.AddDate(0, 0, -20),
		ExpiresAt:     testNow.AddDate(0, 0, 10),
		NextRenewalAt: testNow.AddDate(0, 0, 9),
		AutoRenew:     true,
		CreditBalance: ledger.Zero(usd),
		Version:       1,
	}
	if mutate != nil {
		mutate(&snap)
	}
	sub, err := ReconstructSubscription(snap)
	require.NoError(t, err)
	return sub
}

// =====================================================================
// Status transitions
// =====================================================================

func TestSubscription_Activate(t *testing.T) {
	t.Run("pending becomes active", func(t *testing.T) {
		sub := newTestSubscription(t, func(s *SubscriptionSnapshot) { s.Status = vo.StatusPending })
		require.NoError(t, sub.Activate())
		assert.Equal(t, vo.StatusActive, sub.Status())
	})

	t.Run("suspended becomes active and failure is cleared", func(t *testing.T) {
		sub := newTestSubscription(t, func(s *SubscriptionSnapshot) {
			s.Status = vo.StatusSuspended
			s.PaymentHealth, _ = Failing(testNow.AddDate(0, 0, -7), 3, true)
		})
		require.NoError(t, sub.Activate())
		assert.Equal(t, vo.StatusActive, sub.Status())
		assert.False(t, sub.PaymentHealth().IsFailing())
		assert.Nil(t, sub.PaymentHealth().FailedAt())
		assert.Zero(t, sub.PaymentHealth().FailureCount())
		assert.False(t, sub.PaymentHealth().WarningSent())
	})

	t.Run("calling twice equals calling once", func(t *testing.T) {
		sub := newTestSubscription(t, func(s *SubscriptionSnapshot) {
			s.PaymentHealth, _ = Failing(testNow, 2, false)
		})
		require.NoError(t, sub.Activate())
		first := *sub
		require.NoError(t, sub.Activate())
		assert.Equal(t, first, *sub)
	})

	t.Run("terminal states cannot be activated", func(t *testing.T) {
		for _, st := range []vo.SubscriptionStatus{vo.StatusCancelled, vo.StatusExpired} {
			sub := newTestSubscription(t, func(s *SubscriptionSnapshot) { s.Status = st })
			err := sub.Activate()
			assert.ErrorIs(t, err, ErrInvalidStatusTransition, st)
		}
	})
}

func TestSubscription_TransitionsAreIdempotent(t *testing.T) {
	sub := newTestSubscription(t, nil)

	require.NoError(t, sub.Suspend(testNow))
	version := sub.Version()
	require.NoError(t, sub.Suspend(testNow))
	assert.Equal(t, version, sub.Version())

	require.NoError(t, sub.Cancel("customer request", testNow))
	require.NoError(t, sub.Cancel("again", testNow))
	assert.Equal(t, "customer request", sub.CancelReason())
	assert.False(t, sub.AutoRenew())

	assert.ErrorIs(t, sub.Suspend(testNow), ErrInvalidStatusTransition)
}

func TestSubscription_PendingCannotBeSuspended(t *testing.T) {
	sub := newTestSubscription(t, func(s *SubscriptionSnapshot) { s.Status = vo.StatusPending })
	assert.ErrorIs(t, sub.Suspend(testNow), ErrInvalidStatusTransition)
	assert.ErrorIs(t, sub.MarkAsExpired(testNow), ErrInvalidStatusTransition)
}

// =====================================================================
// Payment health
// =====================================================================

func TestSubscription_RecordPaymentFailure(t *testing.T) {
	sub := newTestSubscription(t, nil)
	first := testNow
	require.NoError(t, sub.RecordPaymentFailure(first))
	require.NoError(t, sub.RecordPaymentFailure(first.Add(24*time.Hour)))
	require.NoError(t, sub.RecordPaymentFailure(first.Add(48*time.Hour)))

	health := sub.PaymentHealth()
	assert.Equal(t, 3, health.FailureCount())
	require.NotNil(t, health.FailedAt())
	assert.Equal(t, first, *health.FailedAt(), "grace clock starts at first failure")
}

func TestSubscription_RecordPaymentFailureRequiresActive(t *testing.T) {
	sub := newTestSubscription(t, func(s *SubscriptionSnapshot) { s.Status = vo.StatusSuspended })
	assert.ErrorIs(t, sub.RecordPaymentFailure(testNow), ErrInvalidStatusTransition)
}

func TestSubscription_MarkSuspensionWarningSent(t *testing.T) {
	sub := newTestSubscription(t, nil)
	assert.ErrorIs(t, sub.MarkSuspensionWarningSent(), ErrNoPaymentFailure)

	require.NoError(t, sub.RecordPaymentFailure(testNow))
	require.NoError(t, sub.MarkSuspensionWarningSent())
	assert.True(t, sub.PaymentHealth().WarningSent())
	assert.ErrorIs(t, sub.MarkSuspensionWarningSent(), ErrWarningAlreadySent)

	require.NoError(t, sub.Activate())
	assert.False(t, sub.PaymentHealth().WarningSent())
}

func TestSubscription_RevokeSuspensionWarning(t *testing.T) {
	sub := newTestSubscription(t, nil)
	assert.False(t, sub.RevokeSuspensionWarning(testNow), "healthy")

	require.NoError(t, sub.RecordPaymentFailure(testNow))
	assert.False(t, sub.RevokeSuspensionWarning(testNow), "not warned yet")

	require.NoError(t, sub.MarkSuspensionWarningSent())
	assert.False(t, sub.RevokeSuspensionWarning(testNow.Add(-time.Hour)), "different episode")
	assert.True(t, sub.PaymentHealth().WarningSent())

	assert.True(t, sub.RevokeSuspensionWarning(testNow))
	assert.False(t, sub.PaymentHealth().WarningSent())
	assert.Equal(t, 1, sub.PaymentHealth().FailureCount())
	require.NoError(t, sub.MarkSuspensionWarningSent(), "can be warned again")
}

func TestPaymentHealthFromColumns(t *testing.T) {
	at := testNow

	h, err := PaymentHealthFromColumns(nil, 0, false)
	require.NoError(t, err)
	assert.False(t, h.IsFailing())

	h, err = PaymentHealthFromColumns(&at, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 2, h.FailureCount())
	assert.True(t, h.WarningSent())

	_, err = PaymentHealthFromColumns(nil, 1, false)
	assert.ErrorIs(t, err, ErrInvalidPaymentHealth)
	_, err = PaymentHealthFromColumns(nil, 0, true)
	assert.ErrorIs(t, err, ErrInvalidPaymentHealth)
	_, err = PaymentHealthFromColumns(&at, 0, false)
	assert.ErrorIs(t, err, ErrInvalidPaymentHealth)
}

// =====================================================================
// Period extension
// =====================================================================

func TestSubscription_ExtendPeriod(t *testing.T) {
	sub := newTestSubscription(t, func(s *SubscriptionSnapshot) {
		s.ExpiresAt = testNow.Add(12 * time.Hour)
		s.PaymentHealth, _ = Failing(testNow.AddDate(0, 0, -1), 1, false)
	})
	newExpiry := sub.ExpiresAt().AddDate(0, 0, 30)

	require.NoError(t, sub.ExtendPeriod(newExpiry, testNow, DefaultRenewalLead))

	assert.Equal(t, newExpiry, sub.ExpiresAt())
	require.NotNil(t, sub.LastRenewalAt())
	assert.Equal(t, testNow, *sub.LastRenewalAt())
	assert.Equal(t, newExpiry.Add(-DefaultRenewalLead), sub.NextRenewalAt())
	assert.False(t, sub.PaymentHealth().IsFailing())
	assert.False(t, sub.IsDueForRenewal(testNow, 24*time.Hour), "renewed subscription leaves the selection")
}

func TestSubscription_ExtendPeriodNextRenewalNotInPast(t *testing.T) {
	sub := newTestSubscription(t, nil)
	require.NoError(t, sub.ExtendPeriod(testNow.Add(time.Hour), testNow, DefaultRenewalLead))
	assert.Equal(t, testNow, sub.NextRenewalAt())
}

func TestSubscription_ExtendPeriodRejectsTerminal(t *testing.T) {
	sub := newTestSubscription(t, func(s *SubscriptionSnapshot) { s.Status = vo.StatusCancelled })
	err := sub.ExtendPeriod(testNow.AddDate(0, 0, 30), testNow, DefaultRenewalLead)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

// =====================================================================
// Scheduled plan change
// =====================================================================

func TestSubscription_ScheduledChangeIsPaired(t *testing.T) {
	sub := newTestSubscription(t, nil)

	require.NoError(t, sub.SchedulePlanChange(20, sub.ExpiresAt()))
	change := sub.ScheduledChange()
	require.NotNil(t, change)
	assert.Equal(t, uint(20), change.PlanID())
	assert.Equal(t, sub.ExpiresAt(), change.At())

	sub.ClearScheduledPlanChange()
	assert.Nil(t, sub.ScheduledChange())

	assert.ErrorIs(t, sub.SchedulePlanChange(0, testNow), ErrInvalidScheduledChange)
	assert.ErrorIs(t, sub.SchedulePlanChange(20, time.Time{}), ErrInvalidScheduledChange)
	assert.ErrorIs(t, sub.SchedulePlanChange(sub.PlanID(), testNow), ErrSamePlan)
	assert.Nil(t, sub.ScheduledChange(), "rejected schedules leave no partial state")
}

func TestScheduledPlanChangeFromColumns(t *testing.T) {
	planID := uint(3)
	at := testNow

	c, err := ScheduledPlanChangeFromColumns(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ScheduledPlanChangeFromColumns(&planID, nil)
	assert.ErrorIs(t, err, ErrInvalidScheduledChange)
	_, err = ScheduledPlanChangeFromColumns(nil, &at)
	assert.ErrorIs(t, err, ErrInvalidScheduledChange)

	c, err = ScheduledPlanChangeFromColumns(&planID, &at)
	require.NoError(t, err)
	assert.Equal(t, planID, c.PlanID())
}

func TestSubscription_ApplyScheduledPlanChange(t *testing.T) {
	sub := newTestSubscription(t, nil)
	require.NoError(t, sub.SchedulePlanChange(20, sub.ExpiresAt()))

	_, applied := sub.ApplyScheduledPlanChange(sub.ExpiresAt().Add(-time.Second))
	assert.False(t, applied)

	planID, applied := sub.ApplyScheduledPlanChange(sub.ExpiresAt())
	assert.True(t, applied)
	assert.Equal(t, uint(20), planID)
	assert.Equal(t, uint(20), sub.PlanID())
	assert.Nil(t, sub.ScheduledChange())

	_, applied = sub.ApplyScheduledPlanChange(sub.ExpiresAt())
	assert.False(t, applied, "a change is applied once")
}

func TestSubscription_ChangePlanClearsSchedule(t *testing.T) {
	sub := newTestSubscription(t, nil)
	require.NoError(t, sub.SchedulePlanChange(20, sub.ExpiresAt()))

	require.NoError(t, sub.ChangePlan(30))
	assert.Equal(t, uint(30), sub.PlanID())
	assert.Nil(t, sub.ScheduledChange())
}

func TestSubscription_CanChangePlan(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(s *SubscriptionSnapshot)
		wantOK     bool
		wantReason string
	}{
		{"active with time left", nil, true, ""},
		{"suspended", func(s *SubscriptionSnapshot) { s.Status = vo.StatusSuspended }, false, ReasonNotActive},
		{"expired period", func(s *SubscriptionSnapshot) { s.ExpiresAt = testNow }, false, ReasonExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newTestSubscription(t, tt.mutate)
			ok, reason := sub.CanChangePlan(testNow)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)

			err := sub.EnsureCanChangePlan(testNow)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrCannotChangePlan)
			var rejected *PlanChangeRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.wantReason, rejected.Reason)
		})
	}
}

// =====================================================================
// Credit
// =====================================================================

func TestSubscription_Credit(t *testing.T) {
	sub := newTestSubscription(t, nil)
	require.NoError(t, sub.AddCredit(ledger.MustMoney(1500, usd)))
	assert.Equal(t, int64(1500), sub.CreditBalance().Minor())

	used, err := sub.ConsumeCredit(ledger.MustMoney(1000, usd))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), used.Minor())
	assert.Equal(t, int64(500), sub.CreditBalance().Minor())

	used, err = sub.ConsumeCredit(ledger.MustMoney(1000, usd))
	require.NoError(t, err)
	assert.Equal(t, int64(500), used.Minor())
	assert.True(t, sub.CreditBalance().IsZero())

	err = sub.AddCredit(ledger.MustMoney(1, ledger.MustParseCurrency("GHS")))
	assert.ErrorIs(t, err, ledger.ErrCurrencyMismatch)
}

// =====================================================================
// Renewal selection
// =====================================================================

func TestSubscription_IsDueForRenewal(t *testing.T) {
	window := 24 * time.Hour
	tests := []struct {
		name   string
		mutate func(s *SubscriptionSnapshot)
		want   bool
	}{
		{"expires in 12h", func(s *SubscriptionSnapshot) { s.ExpiresAt = testNow.Add(12 * time.Hour) }, true},
		{"next renewal passed", func(s *SubscriptionSnapshot) { s.NextRenewalAt = testNow.Add(-time.Minute) }, true},
		{"far from expiry", nil, false},
		{"auto renew off", func(s *SubscriptionSnapshot) {
			s.ExpiresAt = testNow.Add(time.Hour)
			s.AutoRenew = false
		}, false},
		{"suspended", func(s *SubscriptionSnapshot) {
			s.ExpiresAt = testNow.Add(time.Hour)
			s.Status = vo.StatusSuspended
		}, false},
		{"failing waits for retry time", func(s *SubscriptionSnapshot) {
			s.ExpiresAt = testNow.Add(time.Hour)
			s.NextRenewalAt = testNow.Add(20 * time.Hour)
			s.PaymentHealth, _ = Failing(testNow.Add(-4*time.Hour), 1, false)
		}, false},
		{"failing retry due", func(s *SubscriptionSnapshot) {
			s.ExpiresAt = testNow.Add(time.Hour)
			s.NextRenewalAt = testNow
			s.PaymentHealth, _ = Failing(testNow.Add(-24*time.Hour), 1, false)
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestSubscription(t, tt.mutate).IsDueForRenewal(testNow, window))
		})
	}
}

func TestNewSubscription(t *testing.T) {
	plan := newTestPlan(t, 10, 1000, 30)
	start := testNow

	sub, err := NewSubscription(7, plan, start, true)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, sub.Status())
	assert.Equal(t, start.AddDate(0, 0, 30), sub.ExpiresAt())
	assert.Equal(t, usd, sub.Currency())
	assert.Nil(t, sub.ScheduledChange())
	assert.False(t, sub.PaymentHealth().IsFailing())

	plan.Deactivate()
	_, err = NewSubscription(7, plan, start, true)
	assert.ErrorIs(t, err, ErrPlanInactive)
}
