package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/coursesub/docs"
	"github.com/fatflowers/coursesub/internal/app/api/handlers"
	mw "github.com/fatflowers/coursesub/internal/app/api/middleware"
	"github.com/fatflowers/coursesub/internal/app/service/audit"
	"github.com/fatflowers/coursesub/internal/app/service/plan"
	"github.com/fatflowers/coursesub/internal/app/service/statistics"
	subsvc "github.com/fatflowers/coursesub/internal/app/service/subscription"
	cfgpkg "github.com/fatflowers/coursesub/pkg/config"
	"github.com/fatflowers/coursesub/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

// newPrometheus returns nil when metrics_addr is empty.
func newPrometheus(cfg *cfgpkg.Config, log *zap.SugaredLogger) *metrics.Prometheus {
	if cfg.MetricsAddr == "" {
		return nil
	}
	return metrics.NewPrometheus(metrics.PrometheusOptions{
		MetricsList: metrics.BusinessMetrics,
		Logger:      log,
	})
}

type routeDeps struct {
	fx.In

	Engine       *gin.Engine
	Log          *zap.SugaredLogger
	Config       *cfgpkg.Config
	Metrics      *metrics.Prometheus
	Plans        *plan.Service
	Audit        *audit.Service
	Subscription *subsvc.Service
	Stats        *statistics.Service
}

func registerRoutes(d routeDeps) {
	r, log, cfg := d.Engine, d.Log, d.Config

	if d.Metrics != nil {
		r.Use(d.Metrics.HandlerFunc())
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.TimeoutMiddleware(cfg.Server.RequestTimeout))
	handlers.RegisterPlanRoutes(apiV1, d.Plans, log)

	auth := mw.AuthMiddleware(cfg.Auth.JWTSecret, log)
	handlers.RegisterSubscriptionRoutes(apiV1.Group("/subscription", auth),
		handlers.NewSubscriptionHandler(d.Subscription, d.Audit, log))

	// Admin APIs
	handlers.RegisterAdminRoutes(apiV1.Group("/admin", auth, mw.RequireRole(cfg.Auth.AdminRole)),
		d.Audit, d.Stats, d.Subscription, log)
}

type serverDeps struct {
	fx.In

	Lifecycle fx.Lifecycle
	Log       *zap.SugaredLogger
	Config    *cfgpkg.Config
	Engine    *gin.Engine
	Metrics   *metrics.Prometheus
}

func runServer(d serverDeps) {
	log, cfg := d.Log, d.Config
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	servers := []*http.Server{{Addr: addr, Handler: d.Engine, ReadHeaderTimeout: 5 * time.Second}}
	if d.Metrics != nil {
		servers = append(servers, d.Metrics.Server(cfg.MetricsAddr))
	}

	d.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, srv := range servers {
				log.Infow("starting HTTP server", "addr", srv.Addr)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorf("server error: %v", err)
						panic(err)
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP servers")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			var errs []error
			for _, srv := range servers {
				errs = append(errs, srv.Shutdown(shutdownCtx))
			}
			return errors.Join(errs...)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(newPrometheus),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
