package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/coursesub/internal/models"
	cfgpkg "github.com/fatflowers/coursesub/pkg/config"
	gormzap "github.com/fatflowers/coursesub/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	level := gormlogger.Warn
	if cfg.Env == cfgpkg.EnvDev {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormzap.New(l, level),
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// activeSubscriptionIndexSQL is valid on both PostgreSQL and SQLite.
var activeSubscriptionIndexSQL = fmt.Sprintf(
	"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (user_id) WHERE status = 'active'",
	models.ActiveSubscriptionIndex, models.Subscription{}.TableName(),
)

// Migrate creates or updates every table owned by the service and the
// partial unique index guarding the one-active-subscription invariant.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Plan{},
		&models.Subscription{},
		&models.SubscriptionHistory{},
		&models.SubscriptionTransaction{},
		&models.Order{},
	); err != nil {
		return err
	}
	if err := db.Exec(activeSubscriptionIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", models.ActiveSubscriptionIndex, err)
	}
	return nil
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
