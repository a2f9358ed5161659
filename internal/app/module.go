package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/coursesub/internal/app/api/server"
	"github.com/fatflowers/coursesub/internal/app/service/audit"
	"github.com/fatflowers/coursesub/internal/app/service/order"
	"github.com/fatflowers/coursesub/internal/app/service/plan"
	"github.com/fatflowers/coursesub/internal/app/service/statistics"
	"github.com/fatflowers/coursesub/internal/app/service/subscription"
	"github.com/fatflowers/coursesub/internal/platform/db"
	"github.com/fatflowers/coursesub/pkg/config"
	"github.com/fatflowers/coursesub/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	plan.Module,
	audit.Module,
	order.Module,
	subscription.Module,
	statistics.Module,
)
