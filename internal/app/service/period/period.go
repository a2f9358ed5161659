// Package period maps billing intervals to concrete subscription periods.
//
// Calendar arithmetic clamps to the end of the target month: Jan 31 plus one
// month is Feb 28 (Feb 29 in leap years), and Feb 29 plus one year is Feb 28.
// Time of day and location are preserved.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"github.com/fatflowers/coursesub/pkg/types"
)

var ErrInvalidInterval = errors.New("invalid billing interval")

var intervalMonths = map[types.BillingInterval]int{
	types.BillingIntervalMonthly:   1,
	types.BillingIntervalQuarterly: 3,
	types.BillingIntervalYearly:    12,
	types.BillingInterval2Years:    24,
	types.BillingInterval3Years:    36,
}

// Months returns the length of interval in calendar months.
func Months(interval types.BillingInterval) (int, error) {
	m, ok := intervalMonths[interval]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return m, nil
}

// Validate reports ErrInvalidInterval for intervals outside the catalog enum.
func Validate(interval types.BillingInterval) error {
	_, err := Months(interval)
	return err
}

// EndDate returns the exclusive end of a period of the given interval
// starting at start.
func EndDate(start time.Time, interval types.BillingInterval) (time.Time, error) {
	months, err := Months(interval)
	if err != nil {
		return time.Time{}, err
	}
	return AddMonths(start, months), nil
}

// AddMonths adds n calendar months to t, clamping the day of month to the
// length of the target month.
func AddMonths(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	lastDay := now.With(firstOfTarget).EndOfMonth().Day()
	day := min(t.Day(), lastDay)
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
