package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/types"
)

var Module = fx.Options(
	fx.Provide(New),
)

type StatisticType string

const (
	// Completed payments
	StatisticTypeDailyTransactionCount StatisticType = "daily_transaction_count"
	StatisticTypeDailyRevenue          StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue          StatisticType = "total_revenue"

	// Lifecycle transitions from the history log
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeDailyChangeCount          StatisticType = "daily_change_count"

	StatisticTypeActiveSubscriptionCount StatisticType = "active_subscription_count"
)

var paymentFilters = []string{"created_at", "currency", "payment_method"}
var historyFilters = []string{"created_at", "currency"}

// validFilters lists, per statistic, the filter fields that apply to it. A
// statistic requested together with a filter it does not support yields no data.
var validFilters = map[StatisticType][]string{
	StatisticTypeDailyTransactionCount:     paymentFilters,
	StatisticTypeDailyRevenue:              paymentFilters,
	StatisticTypeTotalRevenue:              paymentFilters,
	StatisticTypeDailyNewSubscriptionCount: historyFilters,
	StatisticTypeDailyChangeCount:          historyFilters,
	StatisticTypeActiveSubscriptionCount:   {"plan_id", "payment_method"},
}

type SubscriptionStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type SubscriptionStatisticRequest struct {
	Filters   []*types.CommonFilter            `json:"filters"`
	DataItems []*SubscriptionStatisticDataItem `json:"data_items"`
}

// Validate checks every filter against the union of fields the requested
// statistics accept.
func (r *SubscriptionStatisticRequest) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("no data items requested")
	}
	allowed := map[string]bool{}
	for _, item := range r.DataItems {
		fields, ok := validFilters[item.ID]
		if !ok {
			return fmt.Errorf("invalid data item id: %s", item.ID)
		}
		for _, f := range fields {
			allowed[f] = true
		}
	}
	for _, f := range r.Filters {
		if err := f.Validate(allowed); err != nil {
			return err
		}
	}
	return nil
}

// applicable reports whether every filter of the request applies to statisticType.
func (r *SubscriptionStatisticRequest) applicable(statisticType StatisticType) bool {
	return lo.EveryBy(r.Filters, func(f *types.CommonFilter) bool {
		return lo.Contains(validFilters[statisticType], f.Field)
	})
}

// Build ANDs the request filters into a WHERE expression.
func (r *SubscriptionStatisticRequest) Build(builder clause.Builder) {
	if len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(r.Filters))
	for _, f := range r.Filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type SubscriptionStatisticResponseDataItem struct {
	Date  string          `json:"date,omitempty"`
	Label string          `json:"label,omitempty"`
	Value decimal.Decimal `json:"value"`
}

type SubscriptionStatisticResponse struct {
	DataItems map[StatisticType][]SubscriptionStatisticResponseDataItem `json:"data_items"`
}

// Service answers admin reporting queries over the subscription and audit tables.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// dayExpr renders column as a YYYY-MM-DD string in the connected dialect.
func dayExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	}
	return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
}

func (s *Service) completedPayments(ctx context.Context, request *SubscriptionStatisticRequest) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.SubscriptionTransaction{}).
		Where("transaction_type = ? AND status = ?", types.TransactionTypePayment, types.TransactionStatusCompleted).
		Where(clause.Where{Exprs: []clause.Expression{request}})
}

func (s *Service) getDailyTransactionCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	day := dayExpr(s.db, "created_at")
	err := s.completedPayments(ctx, request).
		Select(day + " AS date, count(*) AS value").
		Group(day).
		Order("date").
		Scan(&results).Error
	return results, err
}

func (s *Service) getDailyRevenue(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	day := dayExpr(s.db, "created_at")
	err := s.completedPayments(ctx, request).
		Select(day + " AS date, currency AS label, sum(amount) AS value").
		Group(day).
		Group("currency").
		Order("date").
		Order("label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getTotalRevenue(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	err := s.completedPayments(ctx, request).
		Select("currency AS label, sum(amount) AS value").
		Group("currency").
		Order("label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	day := dayExpr(s.db, "created_at")
	err := s.db.WithContext(ctx).Model(&models.SubscriptionHistory{}).
		Select(day + " AS date, count(*) AS value").
		Where("change_type = ?", types.SubscriptionChangeTypeNew).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group(day).
		Order("date").
		Scan(&results).Error
	return results, err
}

func (s *Service) getDailyChangeCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	day := dayExpr(s.db, "created_at")
	err := s.db.WithContext(ctx).Model(&models.SubscriptionHistory{}).
		Select(day + " AS date, change_type AS label, count(*) AS value").
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Group(day).
		Group("change_type").
		Order("date").
		Order("label").
		Scan(&results).Error
	return results, err
}

func (s *Service) getActiveSubscriptionCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("end_date > ?", s.now()).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	return []SubscriptionStatisticResponseDataItem{{Value: decimal.NewFromInt(count)}}, nil
}

func (s *Service) getSubscriptionStatistic(ctx context.Context, request *SubscriptionStatisticRequest, dataItem *SubscriptionStatisticDataItem) ([]SubscriptionStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyTransactionCount:
		return s.getDailyTransactionCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeDailyChangeCount:
		return s.getDailyChangeCount(ctx, request)
	case StatisticTypeActiveSubscriptionCount:
		return s.getActiveSubscriptionCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetSubscriptionStatistic computes the requested data items concurrently.
func (s *Service) GetSubscriptionStatistic(ctx context.Context, request *SubscriptionStatisticRequest) (*SubscriptionStatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[StatisticType][]SubscriptionStatisticResponseDataItem, len(request.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range lo.UniqBy(request.DataItems, func(di *SubscriptionStatisticDataItem) StatisticType { return di.ID }) {
		g.Go(func() error {
			var res []SubscriptionStatisticResponseDataItem
			if request.applicable(item.ID) {
				var err error
				if res, err = s.getSubscriptionStatistic(gctx, request, item); err != nil {
					return fmt.Errorf("%s: %w", item.ID, err)
				}
			}
			mu.Lock()
			results[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("subscription statistic failed", "err", err)
		return nil, err
	}
	return &SubscriptionStatisticResponse{DataItems: results}, nil
}
