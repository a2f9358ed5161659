// Package order is the thin slice of the order-management tables the
// subscription flow touches: lookup by order number and completion.
package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// FindByNumber returns the order with the given number, or nil when there is none.
func (s *Service) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, nil
	}
	var o models.Order
	if err := s.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// MarkCompleted sets the order status to completed. Completing an already
// completed order is a no-op, so callers may retry freely.
func (s *Service) MarkCompleted(ctx context.Context, orderID string) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", orderID, types.OrderStatusCompleted).
		Update("status", types.OrderStatusCompleted)
	if res.Error != nil {
		return fmt.Errorf("failed to complete order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logctx.FromCtx(ctx, s.log).Infow("order completed", "order_id", orderID)
	}
	return nil
}

// ListIncompleteWithPayments returns orders referenced by a completed payment
// entry whose own status is not completed yet.
func (s *Service) ListIncompleteWithPayments(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.WithContext(ctx).
		Where("status <> ?", types.OrderStatusCompleted).
		Where("id IN (?)", s.db.Model(&models.SubscriptionTransaction{}).
			Select("order_id").
			Where("order_id IS NOT NULL AND transaction_type = ? AND status = ?",
				types.TransactionTypePayment, types.TransactionStatusCompleted)).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete orders: %w", err)
	}
	return orders, nil
}
