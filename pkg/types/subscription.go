package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
)

// SubscriptionChangeType classifies a history entry.
type SubscriptionChangeType string

const (
	SubscriptionChangeTypeNew        SubscriptionChangeType = "new"
	SubscriptionChangeTypeUpgrade    SubscriptionChangeType = "upgrade"
	SubscriptionChangeTypeDowngrade  SubscriptionChangeType = "downgrade"
	SubscriptionChangeTypeCancel     SubscriptionChangeType = "cancel"
	SubscriptionChangeTypeRenew      SubscriptionChangeType = "renew"
	SubscriptionChangeTypeReactivate SubscriptionChangeType = "reactivate"
)

type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)
