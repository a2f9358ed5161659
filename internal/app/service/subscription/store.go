package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/types"
)

const pgUniqueViolation = "23505"

// Store persists subscription rows. Every method takes the handle to run on,
// so callers decide which statements share a transaction.
type Store struct{}

func NewStore() *Store { return &Store{} }

// TryCreateActive inserts sub as the user's only active subscription. It
// returns *AlreadyActiveError when another active row exists, whether found
// by the pre-check or rejected by the partial unique index on insert. In the
// latter case the error carries no details: the transaction is unusable and
// the caller must look the blocking row up afresh.
func (st *Store) TryCreateActive(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	if sub.Status != types.SubscriptionStatusActive {
		return fmt.Errorf("TryCreateActive called with status %s", sub.Status)
	}
	existing, err := st.FindActiveByUser(ctx, tx, sub.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return alreadyActiveFrom(existing)
	}
	return st.create(ctx, tx, sub)
}

func (st *Store) create(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	if err := tx.WithContext(ctx).Create(sub).Error; err != nil {
		if isDuplicateKey(err) {
			return &AlreadyActiveError{}
		}
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// FindActiveByUser returns the user's active subscription or nil.
func (st *Store) FindActiveByUser(ctx context.Context, db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &sub, nil
}

// GetByID returns ErrNotFound when no row has id.
func (st *Store) GetByID(ctx context.Context, db *gorm.DB, id string) (*models.Subscription, error) {
	return st.get(ctx, db.WithContext(ctx), id)
}

// LockByID is GetByID with SELECT ... FOR UPDATE, for use inside a transaction.
func (st *Store) LockByID(ctx context.Context, tx *gorm.DB, id string) (*models.Subscription, error) {
	return st.get(ctx, tx.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

func (st *Store) get(_ context.Context, q *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := q.Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Update writes every mutable column of sub. Moving a row into the active
// state while the user holds another active row yields *AlreadyActiveError.
func (st *Store) Update(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	res := tx.WithContext(ctx).Model(sub).
		Select("plan_id", "status", "start_date", "end_date", "auto_renew", "payment_method", "last_payment_date", "next_payment_date", "updated_at").
		Updates(sub)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return &AlreadyActiveError{}
		}
		return fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns all of the user's subscriptions, newest first.
func (st *Store) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Order("id desc").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Delete removes the row outright. Audit rows are kept.
func (st *Store) Delete(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func alreadyActiveFrom(sub *models.Subscription) *AlreadyActiveError {
	return &AlreadyActiveError{
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		EndDate:        sub.EndDate,
	}
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
