package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/coursesub/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestEndDate(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		interval types.BillingInterval
		want     time.Time
	}{
		{name: "monthly", start: date(2025, 1, 15), interval: types.BillingIntervalMonthly, want: date(2025, 2, 15)},
		{name: "monthly jan 31 clamps to feb 28", start: date(2025, 1, 31), interval: types.BillingIntervalMonthly, want: date(2025, 2, 28)},
		{name: "monthly jan 31 clamps to feb 29 in leap year", start: date(2024, 1, 31), interval: types.BillingIntervalMonthly, want: date(2024, 2, 29)},
		{name: "monthly mar 31 clamps to apr 30", start: date(2025, 3, 31), interval: types.BillingIntervalMonthly, want: date(2025, 4, 30)},
		{name: "monthly crosses year", start: date(2025, 12, 31), interval: types.BillingIntervalMonthly, want: date(2026, 1, 31)},
		{name: "quarterly", start: date(2025, 1, 15), interval: types.BillingIntervalQuarterly, want: date(2025, 4, 15)},
		{name: "quarterly aug 31 clamps to nov 30", start: date(2025, 8, 31), interval: types.BillingIntervalQuarterly, want: date(2025, 11, 30)},
		{name: "quarterly nov 30 clamps to feb 28", start: date(2025, 11, 30), interval: types.BillingIntervalQuarterly, want: date(2026, 2, 28)},
		{name: "yearly", start: date(2025, 1, 15), interval: types.BillingIntervalYearly, want: date(2026, 1, 15)},
		{name: "yearly feb 29 clamps to feb 28", start: date(2024, 2, 29), interval: types.BillingIntervalYearly, want: date(2025, 2, 28)},
		{name: "2years", start: date(2025, 1, 15), interval: types.BillingInterval2Years, want: date(2027, 1, 15)},
		{name: "3years", start: date(2025, 1, 15), interval: types.BillingInterval3Years, want: date(2028, 1, 15)},
		{name: "2years from leap day clamps", start: date(2024, 2, 29), interval: types.BillingInterval2Years, want: date(2026, 2, 28)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EndDate(tc.start, tc.interval)
			require.NoError(t, err)
			require.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestEndDate_PreservesClockAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	start := time.Date(2025, 1, 31, 23, 59, 59, 123, loc)

	got, err := EndDate(start, types.BillingIntervalMonthly)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 123, loc), got)
	require.Equal(t, loc, got.Location())
}

func TestEndDate_InvalidInterval(t *testing.T) {
	for _, interval := range []types.BillingInterval{"", "weekly", "Monthly", "1year"} {
		_, err := EndDate(date(2025, 1, 15), interval)
		require.True(t, errors.Is(err, ErrInvalidInterval), "interval %q", interval)
	}
}

func TestMonthsAndValidate(t *testing.T) {
	m, err := Months(types.BillingInterval3Years)
	require.NoError(t, err)
	require.Equal(t, 36, m)
	require.NoError(t, Validate(types.BillingIntervalQuarterly))
	require.ErrorIs(t, Validate("daily"), ErrInvalidInterval)
}

func TestAddMonths_Negative(t *testing.T) {
	require.Equal(t, date(2025, 2, 28), AddMonths(date(2025, 3, 31), -1))
}
