package models

import (
	"time"

	"github.com/fatflowers/coursesub/pkg/types"
	"github.com/shopspring/decimal"
)

// Plan is a subscription catalog entry. The lifecycle service only reads it.
type Plan struct {
	ID              string                `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name            string                `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Price           decimal.Decimal       `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	Currency        string                `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	BillingInterval types.BillingInterval `gorm:"column:billing_interval;type:varchar(32);not null" json:"billing_interval"`
	IsActive        bool                  `gorm:"column:is_active;not null" json:"is_active"`
	DisplayOrder    int                   `gorm:"column:display_order;not null;index" json:"display_order"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plan"
}

// Snapshot captures the plan as charged, for audit rows.
func (p *Plan) Snapshot() *PlanSnapshot {
	if p == nil {
		return nil
	}
	return &PlanSnapshot{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        p.Currency,
		BillingInterval: p.BillingInterval,
	}
}

type PlanSnapshot struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Price           decimal.Decimal       `json:"price"`
	Currency        string                `json:"currency"`
	BillingInterval types.BillingInterval `json:"billing_interval"`
}
