package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/tool"
	"github.com/fatflowers/coursesub/pkg/types"
)

// Service appends and reads subscription history and transaction entries.
// Entries are only ever inserted.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) RecordHistory(ctx context.Context, entry *models.SubscriptionHistory) error {
	if entry == nil {
		return fmt.Errorf("nil history entry")
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Debugw("subscription history recorded",
		"subscription_id", entry.SubscriptionID, "change_type", entry.ChangeType, "amount", entry.Amount.String())
	return nil
}

func (s *Service) RecordTransaction(ctx context.Context, entry *models.SubscriptionTransaction) error {
	if entry == nil {
		return fmt.Errorf("nil transaction entry")
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Debugw("subscription transaction recorded",
		"subscription_id", entry.SubscriptionID, "type", entry.TransactionType, "amount", entry.Amount.String())
	return nil
}

// ListUserHistory returns the user's history entries, newest first.
func (s *Service) ListUserHistory(ctx context.Context, userID string, limit int) ([]*models.SubscriptionHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []*models.SubscriptionHistory
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return rows, nil
}

// ListSubscriptionTransactions returns payment events of one subscription, oldest first.
func (s *Service) ListSubscriptionTransactions(ctx context.Context, subscriptionID string) ([]*models.SubscriptionTransaction, error) {
	var rows []*models.SubscriptionTransaction
	if err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

// ScanRequest is a paginated, filtered admin listing.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

var historySortColumns = map[string]bool{
	"id": true, "created_at": true, "effective_date": true, "amount": true, "user_id": true,
}

var historyFilterColumns = map[string]bool{
	"id": true, "user_id": true, "subscription_id": true, "previous_plan_id": true, "new_plan_id": true,
	"change_type": true, "amount": true, "currency": true, "effective_date": true, "created_at": true,
}

var transactionSortColumns = map[string]bool{
	"id": true, "created_at": true, "amount": true, "subscription_id": true,
}

var transactionFilterColumns = map[string]bool{
	"id": true, "subscription_id": true, "order_id": true, "transaction_type": true, "amount": true,
	"currency": true, "payment_method": true, "status": true, "created_at": true,
}

func (s *Service) ScanHistory(ctx context.Context, req *ScanRequest) (*ScanResponse[*models.SubscriptionHistory], error) {
	return scan[*models.SubscriptionHistory](s.db.WithContext(ctx).Model(&models.SubscriptionHistory{}), req, historySortColumns, historyFilterColumns)
}

func (s *Service) ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanResponse[*models.SubscriptionTransaction], error) {
	return scan[*models.SubscriptionTransaction](s.db.WithContext(ctx).Model(&models.SubscriptionTransaction{}), req, transactionSortColumns, transactionFilterColumns)
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func scan[T any](tx *gorm.DB, req *ScanRequest, sortable, filterable map[string]bool) (*ScanResponse[T], error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}
	if req.SortBy != "" && !sortable[req.SortBy] {
		return nil, fmt.Errorf("unsupported sort field: %s", req.SortBy)
	}
	for _, f := range req.Filters {
		if err := f.Validate(filterable); err != nil {
			return nil, err
		}
	}

	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "id"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})

	rows := make([]T, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	return &ScanResponse[T]{Items: rows, Total: total}, nil
}
