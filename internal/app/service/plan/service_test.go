package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/internal/app/service/period"
	"github.com/fatflowers/coursesub/internal/platform/db/dbtest"
	"github.com/fatflowers/coursesub/pkg/types"
)

func newTestService(t *testing.T) *Service {
	return NewService(dbtest.New(t), zap.NewNop().Sugar())
}

func seeds() []*types.PlanConfig {
	return []*types.PlanConfig{
		{ID: "yearly", Name: "Yearly", Price: "100", Currency: "USD", BillingInterval: types.BillingIntervalYearly, IsActive: true, DisplayOrder: 2},
		{ID: "monthly", Name: "Monthly", Price: "10", Currency: "USD", BillingInterval: types.BillingIntervalMonthly, IsActive: true, DisplayOrder: 1},
		{ID: "legacy", Name: "Legacy", Price: "5", Currency: "USD", BillingInterval: types.BillingIntervalMonthly, IsActive: false, DisplayOrder: 0},
		{ID: "quarterly", Name: "Quarterly", Price: "27.50", Currency: "USD", BillingInterval: types.BillingIntervalQuarterly, IsActive: true, DisplayOrder: 2},
	}
}

func TestSeedAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SeedPlans(ctx, seeds()))

	plans, err := s.ListActivePlans(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"monthly", "quarterly", "yearly"}, ids)

	q, err := s.GetPlan(ctx, "quarterly")
	require.NoError(t, err)
	require.True(t, q.Price.Equal(decimal.RequireFromString("27.5")))
	require.Equal(t, types.BillingIntervalQuarterly, q.BillingInterval)

	// inactive plans are still resolvable by id
	legacy, err := s.GetPlan(ctx, "legacy")
	require.NoError(t, err)
	require.False(t, legacy.IsActive)
}

func TestSeedPlans_UpsertsExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	require.NoError(t, s.SeedPlans(ctx, seeds()))

	updated := []*types.PlanConfig{
		{ID: "monthly", Name: "Monthly Plus", Price: "12", Currency: "USD", BillingInterval: types.BillingIntervalMonthly, IsActive: false, DisplayOrder: 9},
	}
	require.NoError(t, s.SeedPlans(ctx, updated))

	m, err := s.GetPlan(ctx, "monthly")
	require.NoError(t, err)
	require.Equal(t, "Monthly Plus", m.Name)
	require.True(t, m.Price.Equal(decimal.NewFromInt(12)))
	require.False(t, m.IsActive)
}

func TestSeedPlans_RejectsInvalidInterval(t *testing.T) {
	s := newTestService(t)
	err := s.SeedPlans(context.Background(), []*types.PlanConfig{
		{ID: "weekly", Name: "Weekly", Price: "1", Currency: "USD", BillingInterval: "weekly", IsActive: true},
	})
	require.True(t, errors.Is(err, period.ErrInvalidInterval))

	_, err = s.GetPlan(context.Background(), "weekly")
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSeedPlans_RejectsBadPrice(t *testing.T) {
	s := newTestService(t)
	require.Error(t, s.SeedPlans(context.Background(), []*types.PlanConfig{
		{ID: "x", Price: "ten", Currency: "USD", BillingInterval: types.BillingIntervalMonthly},
	}))
	require.Error(t, s.SeedPlans(context.Background(), []*types.PlanConfig{
		{ID: "x", Price: "-1", Currency: "USD", BillingInterval: types.BillingIntervalMonthly},
	}))
	require.NoError(t, s.SeedPlans(context.Background(), nil))
}

func TestGetPlan_NotFound(t *testing.T) {
	s := newTestService(t)
	_, err := s.GetPlan(context.Background(), "nope")
	require.ErrorIs(t, err, ErrPlanNotFound)
}
