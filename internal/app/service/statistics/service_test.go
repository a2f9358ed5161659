package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/internal/platform/db/dbtest"
	"github.com/fatflowers/coursesub/pkg/tool"
	"github.com/fatflowers/coursesub/pkg/types"
)

var (
	day1 = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 1, 16, 12, 0, 0, 0, time.UTC)
)

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	payment := func(at time.Time, amount, currency, method string, status types.TransactionStatus) *models.SubscriptionTransaction {
		return &models.SubscriptionTransaction{
			ID:              tool.GenerateUUIDV7(),
			SubscriptionID:  tool.GenerateUUIDV7(),
			TransactionType: types.TransactionTypePayment,
			Amount:          decimal.RequireFromString(amount),
			Currency:        currency,
			PaymentMethod:   method,
			Status:          status,
			CreatedAt:       at,
		}
	}
	require.NoError(t, db.Create([]*models.SubscriptionTransaction{
		payment(day1, "10", "USD", "card", types.TransactionStatusCompleted),
		payment(day1, "100", "USD", "paypal", types.TransactionStatusCompleted),
		payment(day1, "8.5", "EUR", "card", types.TransactionStatusCompleted),
		payment(day2, "10", "USD", "card", types.TransactionStatusCompleted),
		payment(day2, "99", "USD", "card", types.TransactionStatusFailed),
	}).Error)

	history := func(at time.Time, change types.SubscriptionChangeType) *models.SubscriptionHistory {
		return &models.SubscriptionHistory{
			ID:             tool.GenerateUUIDV7(),
			UserID:         "u",
			SubscriptionID: tool.GenerateUUIDV7(),
			ChangeType:     change,
			Amount:         decimal.Zero,
			Currency:       "USD",
			EffectiveDate:  at,
			CreatedAt:      at,
		}
	}
	require.NoError(t, db.Create([]*models.SubscriptionHistory{
		history(day1, types.SubscriptionChangeTypeNew),
		history(day1, types.SubscriptionChangeTypeNew),
		history(day2, types.SubscriptionChangeTypeNew),
		history(day2, types.SubscriptionChangeTypeCancel),
	}).Error)

	sub := func(status types.SubscriptionStatus, end time.Time) *models.Subscription {
		return &models.Subscription{
			ID:        tool.GenerateUUIDV7(),
			UserID:    tool.GenerateUUIDV7(),
			PlanID:    "basic-monthly",
			Status:    status,
			StartDate: day1,
			EndDate:   end,
		}
	}
	require.NoError(t, db.Create([]*models.Subscription{
		sub(types.SubscriptionStatusActive, day1.AddDate(0, 1, 0)),
		sub(types.SubscriptionStatusActive, day1.AddDate(0, 0, -1)),
		sub(types.SubscriptionStatusCancelled, day1.AddDate(0, 1, 0)),
	}).Error)
}

func newSeeded(t *testing.T) *Service {
	db := dbtest.New(t)
	seed(t, db)
	s := New(db, zap.NewNop().Sugar())
	s.now = func() time.Time { return day2 }
	return s
}

func items(ids ...StatisticType) []*SubscriptionStatisticDataItem {
	return lo.Map(ids, func(id StatisticType, _ int) *SubscriptionStatisticDataItem {
		return &SubscriptionStatisticDataItem{ID: id}
	})
}

func TestGetSubscriptionStatistic(t *testing.T) {
	s := newSeeded(t)

	resp, err := s.GetSubscriptionStatistic(context.Background(), &SubscriptionStatisticRequest{
		DataItems: items(
			StatisticTypeDailyTransactionCount,
			StatisticTypeDailyRevenue,
			StatisticTypeTotalRevenue,
			StatisticTypeDailyNewSubscriptionCount,
			StatisticTypeDailyChangeCount,
			StatisticTypeActiveSubscriptionCount,
		),
	})
	require.NoError(t, err)

	counts := resp.DataItems[StatisticTypeDailyTransactionCount]
	require.Len(t, counts, 2)
	require.Equal(t, "2025-01-15", counts[0].Date)
	require.EqualValues(t, 3, counts[0].Value.IntPart())
	require.Equal(t, "2025-01-16", counts[1].Date)
	require.EqualValues(t, 1, counts[1].Value.IntPart())

	revenue := resp.DataItems[StatisticTypeDailyRevenue]
	require.Len(t, revenue, 3)
	require.Equal(t, "EUR", revenue[0].Label)
	require.True(t, decimal.RequireFromString("8.5").Equal(revenue[0].Value))
	require.Equal(t, "USD", revenue[1].Label)
	require.True(t, decimal.NewFromInt(110).Equal(revenue[1].Value))

	total := resp.DataItems[StatisticTypeTotalRevenue]
	require.Len(t, total, 2)
	require.True(t, decimal.NewFromInt(120).Equal(total[1].Value))

	newSubs := resp.DataItems[StatisticTypeDailyNewSubscriptionCount]
	require.Len(t, newSubs, 2)
	require.EqualValues(t, 2, newSubs[0].Value.IntPart())

	changes := resp.DataItems[StatisticTypeDailyChangeCount]
	require.Len(t, changes, 3)
	require.Equal(t, "cancel", changes[1].Label)

	active := resp.DataItems[StatisticTypeActiveSubscriptionCount]
	require.Len(t, active, 1)
	require.EqualValues(t, 1, active[0].Value.IntPart())
}

func TestGetSubscriptionStatistic_Filters(t *testing.T) {
	s := newSeeded(t)

	resp, err := s.GetSubscriptionStatistic(context.Background(), &SubscriptionStatisticRequest{
		Filters: []*types.CommonFilter{
			{Field: "payment_method", Operator: types.CommonFilterOperatorEq, Values: []any{"card"}},
		},
		DataItems: items(StatisticTypeTotalRevenue, StatisticTypeDailyNewSubscriptionCount),
	})
	require.NoError(t, err)

	total := resp.DataItems[StatisticTypeTotalRevenue]
	require.Len(t, total, 2)
	require.True(t, decimal.NewFromInt(20).Equal(total[1].Value))

	// payment_method does not apply to history based statistics
	require.Contains(t, resp.DataItems, StatisticTypeDailyNewSubscriptionCount)
	require.Nil(t, resp.DataItems[StatisticTypeDailyNewSubscriptionCount])
}

func TestSubscriptionStatisticRequest_Validate(t *testing.T) {
	cases := []struct {
		name    string
		req     *SubscriptionStatisticRequest
		wantErr bool
	}{
		{name: "nil", req: nil, wantErr: true},
		{name: "no items", req: &SubscriptionStatisticRequest{}, wantErr: true},
		{name: "unknown item", req: &SubscriptionStatisticRequest{DataItems: items("mrr")}, wantErr: true},
		{name: "unknown filter field", req: &SubscriptionStatisticRequest{
			DataItems: items(StatisticTypeDailyRevenue),
			Filters:   []*types.CommonFilter{{Field: "amount; drop table", Operator: types.CommonFilterOperatorEq, Values: []any{1}}},
		}, wantErr: true},
		{name: "bad operator", req: &SubscriptionStatisticRequest{
			DataItems: items(StatisticTypeDailyRevenue),
			Filters:   []*types.CommonFilter{{Field: "currency", Operator: "like", Values: []any{"U%"}}},
		}, wantErr: true},
		{name: "ok", req: &SubscriptionStatisticRequest{
			DataItems: items(StatisticTypeDailyRevenue),
			Filters:   []*types.CommonFilter{{Field: "currency", Operator: types.CommonFilterOperatorIn, Values: []any{"USD", "EUR"}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
