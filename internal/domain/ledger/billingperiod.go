package ledger

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// BillingPeriod is the half-open service interval [Start, End).
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

func NewBillingPeriod(start, end time.Time) (BillingPeriod, error) {
	if !end.After(start) {
		return BillingPeriod{}, fmt.Errorf("%w: %s >= %s", ErrInvalidPeriod, start, end)
	}
	return BillingPeriod{Start: start, End: end}, nil
}

// PeriodFrom returns the period of durationDays starting at start.
func PeriodFrom(start time.Time, durationDays int) BillingPeriod {
	return BillingPeriod{Start: start, End: start.AddDate(0, 0, durationDays)}
}

// DaysRemaining counts the days left at now, rounding a partial day up.
// It is zero once End has been reached.
func (p BillingPeriod) DaysRemaining(now time.Time) int {
	return CeilDays(p.End.Sub(now))
}

func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p BillingPeriod) Length() time.Duration {
	return p.End.Sub(p.Start)
}

// CeilDays converts d to whole days, rounding up; negative durations yield 0.
func CeilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}
