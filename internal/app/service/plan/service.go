package plan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/coursesub/internal/app/service/period"
	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/config"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/types"
)

var ErrPlanNotFound = errors.New("plan not found")

// Service is the read side of the plan catalog.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// GetPlan returns the plan with id, active or not.
func (s *Service) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	var p models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", planID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

// ListActivePlans returns active plans ordered by display order.
func (s *Service) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order asc").
		Order("id asc").
		Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// SeedPlans upserts the catalog entries declared in config. Plans missing
// from the list are left untouched.
func (s *Service) SeedPlans(ctx context.Context, seeds []*types.PlanConfig) error {
	if len(seeds) == 0 {
		return nil
	}
	plans := make([]*models.Plan, 0, len(seeds))
	for _, seed := range seeds {
		p, err := planFromConfig(seed)
		if err != nil {
			return err
		}
		plans = append(plans, p)
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "billing_interval", "is_active", "display_order", "updated_at"}),
	}).Create(&plans).Error
	if err != nil {
		return fmt.Errorf("failed to seed plans: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("plan catalog seeded", "count", len(plans))
	return nil
}

func planFromConfig(seed *types.PlanConfig) (*models.Plan, error) {
	if seed == nil || seed.ID == "" {
		return nil, fmt.Errorf("plan seed without id")
	}
	if err := period.Validate(seed.BillingInterval); err != nil {
		return nil, fmt.Errorf("plan %s: %w", seed.ID, err)
	}
	price, err := seed.PriceDecimal()
	if err != nil {
		return nil, fmt.Errorf("plan %s: invalid price %q: %w", seed.ID, seed.Price, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("plan %s: negative price %s", seed.ID, price)
	}
	return &models.Plan{
		ID:              seed.ID,
		Name:            seed.Name,
		Price:           price,
		Currency:        seed.Currency,
		BillingInterval: seed.BillingInterval,
		IsActive:        seed.IsActive,
		DisplayOrder:    seed.DisplayOrder,
	}, nil
}

func seedOnStart(lc fx.Lifecycle, s *Service, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.SeedPlans(ctx, cfg.Plans)
		},
	})
}
