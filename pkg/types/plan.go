package types

import "github.com/shopspring/decimal"

// BillingInterval is the recurring period a plan renews on.
type BillingInterval string

const (
	BillingIntervalMonthly   BillingInterval = "monthly"
	BillingIntervalQuarterly BillingInterval = "quarterly"
	BillingIntervalYearly    BillingInterval = "yearly"
	BillingInterval2Years    BillingInterval = "2years"
	BillingInterval3Years    BillingInterval = "3years"
)

// PlanConfig declares a catalog entry in the config file. Entries are
// upserted into the plan table on startup.
type PlanConfig struct {
	ID              string          `json:"id" mapstructure:"id"`
	Name            string          `json:"name" mapstructure:"name"`
	Price           string          `json:"price" mapstructure:"price"`
	Currency        string          `json:"currency" mapstructure:"currency"`
	BillingInterval BillingInterval `json:"billing_interval" mapstructure:"billing_interval"`
	IsActive        bool            `json:"is_active" mapstructure:"is_active"`
	DisplayOrder    int             `json:"display_order" mapstructure:"display_order"`
}

// PriceDecimal parses Price. Prices are kept as strings in config so that
// yaml never rounds them through float64.
func (p *PlanConfig) PriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(p.Price)
}
