package subscription

import (
	"fmt"
	"time"
)

// PaymentHealth is either Healthy or Failing. The zero value is Healthy.
// It is persisted as three flat columns; FromColumns rejects combinations the
// variant cannot represent.
type PaymentHealth struct {
	failing *failingEpisode
}

type failingEpisode struct {
	since  time.Time
	count  int
	warned bool
}

func Healthy() PaymentHealth {
	return PaymentHealth{}
}

// Failing builds the failing variant. count must be positive.
func Failing(since time.Time, count int, warned bool) (PaymentHealth, error) {
	if since.IsZero() || count <= 0 {
		return PaymentHealth{}, fmt.Errorf("%w: since=%v count=%d", ErrInvalidPaymentHealth, since, count)
	}
	return PaymentHealth{failing: &failingEpisode{since: since, count: count, warned: warned}}, nil
}

// PaymentHealthFromColumns rebuilds the variant from persisted columns.
func PaymentHealthFromColumns(failedAt *time.Time, count int, warned bool) (PaymentHealth, error) {
	if failedAt == nil {
		if count != 0 || warned {
			return PaymentHealth{}, fmt.Errorf("%w: count=%d warned=%t without failure timestamp", ErrInvalidPaymentHealth, count, warned)
		}
		return Healthy(), nil
	}
	return Failing(*failedAt, count, warned)
}

func (h PaymentHealth) IsFailing() bool {
	return h.failing != nil
}

// FailedAt is the first unresolved failure, nil when healthy.
func (h PaymentHealth) FailedAt() *time.Time {
	if h.failing == nil {
		return nil
	}
	t := h.failing.since
	return &t
}

func (h PaymentHealth) FailureCount() int {
	if h.failing == nil {
		return 0
	}
	return h.failing.count
}

func (h PaymentHealth) WarningSent() bool {
	return h.failing != nil && h.failing.warned
}

// withFailure keeps the first failure time and bumps the count.
func (h PaymentHealth) withFailure(now time.Time) PaymentHealth {
	if h.failing == nil {
		return PaymentHealth{failing: &failingEpisode{since: now, count: 1}}
	}
	next := *h.failing
	next.count++
	return PaymentHealth{failing: &next}
}

func (h PaymentHealth) withWarning() (PaymentHealth, error) {
	if h.failing == nil {
		return h, ErrNoPaymentFailure
	}
	if h.failing.warned {
		return h, ErrWarningAlreadySent
	}
	next := *h.failing
	next.warned = true
	return PaymentHealth{failing: &next}, nil
}

// withoutWarning reopens the episode's warning. Healthy or unwarned health
// is returned unchanged.
func (h PaymentHealth) withoutWarning() PaymentHealth {
	if h.failing == nil || !h.failing.warned {
		return h
	}
	next := *h.failing
	next.warned = false
	return PaymentHealth{failing: &next}
}
