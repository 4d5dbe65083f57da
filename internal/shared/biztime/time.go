// Package biztime centralises time handling. Everything is stored and compared
// in UTC; the business timezone only affects cron schedules and dates shown
// to customers.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const DefaultTimezone = "UTC"

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init sets the business timezone. Only the first call has an effect.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// Location returns the business timezone, initialising the default if needed.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatDate renders t as a calendar date in the business timezone, for
// customer-facing messages.
func FormatDate(t time.Time) string {
	return t.In(Location()).Format("2 Jan 2006")
}

// FormatMetadataTime formats a UTC time for storage in metadata using RFC3339.
func FormatMetadataTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ParseMetadataTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid metadata timestamp format %q: %w", s, err)
	}
	return t, nil
}
