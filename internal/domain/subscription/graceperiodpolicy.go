package subscription

import (
	"time"

	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

const DefaultFailureThreshold = 3

// GracePeriodPolicy decides what a failing subscription is owed. The grace
// period runs from the first failed renewal until the already-paid period
// ends, optionally stretched by Extension.
type GracePeriodPolicy struct {
	// FailureThreshold is the consecutive failure count that turns auto-renew off.
	FailureThreshold int
	Extension        time.Duration
}

func NewGracePeriodPolicy(failureThreshold int, extension time.Duration) GracePeriodPolicy {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if extension < 0 {
		extension = 0
	}
	return GracePeriodPolicy{FailureThreshold: failureThreshold, Extension: extension}
}

// GraceEndsAt is the moment a failing subscription becomes suspendable.
func (p GracePeriodPolicy) GraceEndsAt(sub *Subscription) time.Time {
	return sub.ExpiresAt().Add(p.Extension)
}

func (p GracePeriodPolicy) IsInGracePeriod(sub *Subscription, now time.Time) bool {
	return sub.PaymentHealth().IsFailing() && p.GraceEndsAt(sub).After(now)
}

func (p GracePeriodPolicy) GracePeriodExpired(sub *Subscription, now time.Time) bool {
	return sub.PaymentHealth().IsFailing() && !p.GraceEndsAt(sub).After(now)
}

func (p GracePeriodPolicy) ReadyForSuspension(sub *Subscription, now time.Time) bool {
	return sub.Status() == vo.StatusActive && p.GracePeriodExpired(sub, now)
}

func (p GracePeriodPolicy) NeedsSuspensionWarning(sub *Subscription, now time.Time, warnDaysBefore int) bool {
	if sub.Status() != vo.StatusActive || !sub.PaymentHealth().IsFailing() || sub.PaymentHealth().WarningSent() {
		return false
	}
	from, to := p.WarningWindow(now, warnDaysBefore)
	return sub.ExpiresAt().After(from) && !sub.ExpiresAt().After(to)
}

func (p GracePeriodPolicy) ShouldDisableAutoRenew(sub *Subscription) bool {
	return sub.PaymentHealth().FailureCount() >= p.FailureThreshold
}

// SuspensionCutoff is the latest expires_at that is suspendable at now.
func (p GracePeriodPolicy) SuspensionCutoff(now time.Time) time.Time {
	return now.Add(-p.Extension)
}

// WarningWindow is the expires_at range (from, to] whose grace ends within
// warnDaysBefore days of now.
func (p GracePeriodPolicy) WarningWindow(now time.Time, warnDaysBefore int) (time.Time, time.Time) {
	from := now.Add(-p.Extension)
	return from, from.AddDate(0, 0, warnDaysBefore)
}
