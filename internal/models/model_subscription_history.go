package models

import (
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
	"github.com/shopspring/decimal"
)

// SubscriptionHistory records one lifecycle transition. Rows are never
// updated or deleted.
type SubscriptionHistory struct {
	ID             string                       `gorm:"column:id;type:uuid;primary_key;index:idx_history_user_id_id,priority:2,sort:desc" json:"id"`
	UserID         string                       `gorm:"column:user_id;type:varchar(64);not null;index:idx_history_user_id_id,priority:1" json:"user_id"`
	SubscriptionID string                       `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	PreviousPlanID *string                      `gorm:"column:previous_plan_id;type:varchar(64)" json:"previous_plan_id"`
	NewPlanID      *string                      `gorm:"column:new_plan_id;type:varchar(64)" json:"new_plan_id"`
	ChangeType     types.SubscriptionChangeType `gorm:"column:change_type;type:varchar(32);not null" json:"change_type"`
	Amount         decimal.Decimal              `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Currency       string                       `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	EffectiveDate  time.Time                    `gorm:"column:effective_date;not null" json:"effective_date"`
	CreatedAt      time.Time                    `json:"created_at"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
