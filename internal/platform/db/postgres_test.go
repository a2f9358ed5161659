package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/internal/platform/db"
	"github.com/fatflowers/coursesub/internal/platform/db/dbtest"
	"github.com/fatflowers/coursesub/pkg/tool"
	"github.com/fatflowers/coursesub/pkg/types"
)

func newSubscription(userID string, status types.SubscriptionStatus) *models.Subscription {
	now := time.Now().UTC()
	return &models.Subscription{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		PlanID:    "monthly",
		Status:    status,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		AutoRenew: true,
	}
}

func TestMigrate_ActiveSubscriptionIndexRejectsSecondActive(t *testing.T) {
	gdb := dbtest.New(t)

	require.NoError(t, gdb.Create(newSubscription("u1", types.SubscriptionStatusActive)).Error)
	// other states and other users are unaffected
	require.NoError(t, gdb.Create(newSubscription("u1", types.SubscriptionStatusCancelled)).Error)
	require.NoError(t, gdb.Create(newSubscription("u1", types.SubscriptionStatusCancelled)).Error)
	require.NoError(t, gdb.Create(newSubscription("u2", types.SubscriptionStatusActive)).Error)

	err := gdb.Create(newSubscription("u1", types.SubscriptionStatusActive)).Error
	require.Error(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", "u1", types.SubscriptionStatusActive).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestMigrate_Idempotent(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, db.Migrate(gdb))
}

func TestMigrate_DecimalRoundTrip(t *testing.T) {
	gdb := dbtest.New(t)
	plan := &models.Plan{
		ID:              "yearly",
		Name:            "Yearly",
		Price:           decimal.RequireFromString("99.90"),
		Currency:        "USD",
		BillingInterval: types.BillingIntervalYearly,
		IsActive:        true,
	}
	require.NoError(t, gdb.Create(plan).Error)

	var got models.Plan
	require.NoError(t, gdb.First(&got, "id = ?", "yearly").Error)
	require.True(t, got.Price.Equal(decimal.RequireFromString("99.9")), got.Price.String())

	err := gdb.First(&got, "id = ?", "missing").Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
