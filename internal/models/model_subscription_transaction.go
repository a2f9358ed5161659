package models

import (
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SubscriptionTransactionExtra struct {
	// OrderNumber is the caller supplied order reference, kept even when no
	// order row matched it.
	OrderNumber string `json:"order_number,omitempty"`
	// PlanSnapshot is the plan as charged.
	PlanSnapshot *PlanSnapshot `json:"plan_snapshot,omitempty"`
	// ChangeType is the lifecycle transition that produced the payment.
	ChangeType types.SubscriptionChangeType `json:"change_type,omitempty"`
}

// SubscriptionTransaction records one money moving event of a subscription.
// Rows are never updated or deleted.
type SubscriptionTransaction struct {
	ID              string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID  string                  `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	OrderID         *string                 `gorm:"column:order_id;type:uuid;index" json:"order_id"`
	TransactionType types.TransactionType   `gorm:"column:transaction_type;type:varchar(32);not null" json:"transaction_type"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Currency        string                  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	PaymentMethod   string                  `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	Status          types.TransactionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`

	Extra     datatypes.JSONType[*SubscriptionTransactionExtra] `gorm:"column:extra;type:jsonb" json:"extra"`
	CreatedAt time.Time                                         `json:"created_at"`
}

func (SubscriptionTransaction) TableName() string {
	return "subscription_transaction"
}

func (t *SubscriptionTransaction) GetPlanSnapshot() *PlanSnapshot {
	if t == nil || t.Extra.Data() == nil {
		return nil
	}
	return t.Extra.Data().PlanSnapshot
}
