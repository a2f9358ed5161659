package models

import (
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
	"github.com/shopspring/decimal"
)

// Order belongs to the order management side. This service only looks orders
// up by number and marks them completed.
type Order struct {
	ID          string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderNumber string            `gorm:"column:order_number;type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID      string            `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Total       decimal.Decimal   `gorm:"column:total;type:decimal(12,2);not null" json:"total"`
	Currency    string            `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status      types.OrderStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
