package models

import (
	"testing"
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSubscription_Valid(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status types.SubscriptionStatus
		at     time.Time
		want   bool
	}{
		{name: "active inside period", status: types.SubscriptionStatusActive, at: start.Add(time.Hour), want: true},
		{name: "active at start", status: types.SubscriptionStatusActive, at: start, want: true},
		{name: "end is exclusive", status: types.SubscriptionStatusActive, at: end, want: false},
		{name: "before start", status: types.SubscriptionStatusActive, at: start.Add(-time.Second), want: false},
		{name: "cancelled keeps access", status: types.SubscriptionStatusCancelled, at: start.Add(time.Hour), want: true},
		{name: "trial inside period", status: types.SubscriptionStatusTrial, at: start.Add(time.Hour), want: true},
		{name: "expired never valid", status: types.SubscriptionStatusExpired, at: start.Add(time.Hour), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Subscription{Status: tc.status, StartDate: start, EndDate: end}
			require.Equal(t, tc.want, s.Valid(tc.at))
		})
	}

	var nilSub *Subscription
	require.False(t, nilSub.Valid(start))
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "plan", Plan{}.TableName())
	require.Equal(t, "subscription", Subscription{}.TableName())
	require.Equal(t, "subscription_history", SubscriptionHistory{}.TableName())
	require.Equal(t, "subscription_transaction", SubscriptionTransaction{}.TableName())
	require.Equal(t, "orders", Order{}.TableName())
}

func TestSubscriptionTransaction_GetPlanSnapshot(t *testing.T) {
	plan := &Plan{ID: "monthly", Name: "Monthly", Price: decimal.NewFromInt(10), Currency: "USD", BillingInterval: types.BillingIntervalMonthly}
	tx := &SubscriptionTransaction{Extra: datatypes.NewJSONType(&SubscriptionTransactionExtra{PlanSnapshot: plan.Snapshot()})}

	snap := tx.GetPlanSnapshot()
	require.NotNil(t, snap)
	require.Equal(t, "monthly", snap.ID)
	require.True(t, snap.Price.Equal(decimal.NewFromInt(10)))

	require.Nil(t, (&SubscriptionTransaction{}).GetPlanSnapshot())
	var nilTx *SubscriptionTransaction
	require.Nil(t, nilTx.GetPlanSnapshot())
}
