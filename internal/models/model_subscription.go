package models

import (
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
)

// ActiveSubscriptionIndex is the partial unique index that keeps at most one
// active subscription per user.
const ActiveSubscriptionIndex = "idx_subscription_user_active"

// Subscription is a user's purchased instance of a Plan, valid for
// [StartDate, EndDate).
type Subscription struct {
	ID            string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        string                   `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PlanID        string                   `gorm:"column:plan_id;type:varchar(64);not null;index" json:"plan_id"`
	Status        types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	StartDate     time.Time                `gorm:"column:start_date;not null" json:"start_date"`
	EndDate       time.Time                `gorm:"column:end_date;not null" json:"end_date"`
	AutoRenew     bool                     `gorm:"column:auto_renew;not null" json:"auto_renew"`
	PaymentMethod string                   `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	// LastPaymentDate is set whenever a lifecycle operation charges the user.
	LastPaymentDate *time.Time `gorm:"column:last_payment_date;default:null" json:"last_payment_date"`
	// NextPaymentDate is the end of the paid period at the time of the last charge.
	NextPaymentDate *time.Time `gorm:"column:next_payment_date;default:null" json:"next_payment_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Valid reports whether the subscription grants access at the given time.
// Cancelled subscriptions stay valid until EndDate.
func (s *Subscription) Valid(at time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case types.SubscriptionStatusActive, types.SubscriptionStatusCancelled, types.SubscriptionStatusTrial:
		return !at.Before(s.StartDate) && at.Before(s.EndDate)
	default:
		return false
	}
}
