package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/internal/platform/db/dbtest"
	"github.com/fatflowers/coursesub/pkg/tool"
	"github.com/fatflowers/coursesub/pkg/types"
)

func activeSub(userID string) *models.Subscription {
	now := jan15
	return &models.Subscription{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		PlanID:    basicMonthly,
		Status:    types.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		AutoRenew: true,
	}
}

func TestStore_IndexRejectsSecondActive(t *testing.T) {
	db := dbtest.New(t)
	st := NewStore()
	ctx := context.Background()

	require.NoError(t, st.create(ctx, db, activeSub(user)))

	// bypasses the pre-check, so only the unique index can catch it
	err := st.create(ctx, db, activeSub(user))
	require.ErrorIs(t, err, ErrAlreadyActive)
	var aae *AlreadyActiveError
	require.ErrorAs(t, err, &aae)
	require.Empty(t, aae.SubscriptionID)

	cancelled := activeSub(user)
	cancelled.Status = types.SubscriptionStatusCancelled
	require.NoError(t, st.create(ctx, db, cancelled))
}

func TestStore_TryCreateActive(t *testing.T) {
	db := dbtest.New(t)
	st := NewStore()
	ctx := context.Background()

	first := activeSub(user)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return st.TryCreateActive(ctx, tx, first) }))

	err := db.Transaction(func(tx *gorm.DB) error { return st.TryCreateActive(ctx, tx, activeSub(user)) })
	var aae *AlreadyActiveError
	require.ErrorAs(t, err, &aae)
	require.Equal(t, first.ID, aae.SubscriptionID)
	require.True(t, first.EndDate.Equal(aae.EndDate))

	notActive := activeSub(otherUser)
	notActive.Status = types.SubscriptionStatusTrial
	require.Error(t, st.TryCreateActive(ctx, db, notActive))
}

func TestStore_UpdateIntoSecondActive(t *testing.T) {
	db := dbtest.New(t)
	st := NewStore()
	ctx := context.Background()

	require.NoError(t, st.create(ctx, db, activeSub(user)))
	other := activeSub(user)
	other.Status = types.SubscriptionStatusCancelled
	require.NoError(t, st.create(ctx, db, other))

	other.Status = types.SubscriptionStatusActive
	require.ErrorIs(t, st.Update(ctx, db, other), ErrAlreadyActive)

	missing := activeSub(otherUser)
	require.ErrorIs(t, st.Update(ctx, db, missing), ErrNotFound)
}

func TestStore_LockByID(t *testing.T) {
	db := dbtest.New(t)
	st := NewStore()
	ctx := context.Background()
	sub := activeSub(user)
	require.NoError(t, st.create(ctx, db, sub))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		got, err := st.LockByID(ctx, tx, sub.ID)
		require.NoError(t, err)
		require.Equal(t, sub.UserID, got.UserID)
		return nil
	}))

	_, err := st.GetByID(ctx, db, tool.GenerateUUIDV7())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "postgres other", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite", err: errors.New("constraint failed: UNIQUE constraint failed: subscription.user_id (2067)"), want: true},
		{name: "other", err: errors.New("disk full"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isDuplicateKey(tc.err))
		})
	}
}
