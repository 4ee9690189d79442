package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/api"
	"github.com/jonesrussell/north-cloud/suggester/internal/config"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/maintenance"
	"github.com/jonesrussell/north-cloud/suggester/internal/server"
)

const healthCheckTimeout = 2 * time.Second

// SetupHTTPServer builds the HTTP server. scheduler may be nil.
func SetupHTTPServer(
	cfg *config.Config,
	infra *Infrastructure,
	svc *Services,
	scheduler *maintenance.Scheduler,
	log logger.Logger,
) *server.Server {
	deps := api.Deps{
		Suggester:             svc.Suggester,
		Config:                svc.Config,
		Recommendations:       svc.Recommendations,
		StoredRecommendations: svc.StoredRecommendations,
		Submissions:           svc.Repository,
		Completions:           svc.Completions,
		Notifier:              svc.Dispatcher,
		Logger:                log,
	}
	if svc.Cache != nil {
		deps.Cache = svc.Cache
	}
	if cfg.Events.ConsumerEnabled && svc.Publisher != nil {
		deps.Publisher = svc.Publisher
	}
	if scheduler != nil {
		deps.Refresh = scheduler
	}
	handler := api.NewHandler(deps)

	return server.NewBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.Service.CORSOrigins).
		WithTimeouts(cfg.Service.ReadTimeout, cfg.Service.WriteTimeout, cfg.Service.IdleTimeout).
		WithDatabaseHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return infra.DB.PingContext(ctx)
		}).
		WithRedisHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return infra.Redis.Ping(ctx).Err()
		}).
		WithElasticsearchHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return infra.Pages.Ping(ctx)
		}).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, handler, cfg.Auth.JWTSecret, svc.Telemetry.Handler())
		}).
		Build()
}
