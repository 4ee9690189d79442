// Package bootstrap wires and runs the suggester service.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/north-cloud/suggester/internal/config"
	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/events"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/maintenance"
)

// Start initializes and runs the HTTP service until it is signalled.
func Start() error {
	// Phase 1: config and logger
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting suggester service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Phase 2: backends
	infra, err := SetupInfrastructure(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup infrastructure: %w", err)
	}
	defer infra.Close(log)

	// Phase 3: components
	svc := BuildServices(ctx, cfg, infra, log)

	if cfg.Tasks.Watch {
		watcher, watchErr := configloader.NewWatcher(cfg.Tasks.ConfigPath, svc.Loader, log)
		if watchErr != nil {
			log.Warn("Configuration watcher disabled", logger.Error(watchErr))
		} else {
			defer func() { _ = watcher.Close() }()
			go watcher.Run(ctx)
		}
	}

	// Phase 4: background workers
	consumer, err := startConsumer(ctx, cfg, infra, svc, log)
	if err != nil {
		return err
	}
	if consumer != nil {
		defer consumer.Stop()
	}

	scheduler, err := startScheduler(ctx, cfg, svc, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	// Phase 5: HTTP
	srv := SetupHTTPServer(cfg, infra, svc, scheduler, log)
	if runErr := srv.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Suggester service stopped")
	return nil
}

func startConsumer(
	ctx context.Context, cfg *config.Config, infra *Infrastructure, svc *Services, log logger.Logger,
) (*events.Consumer, error) {
	if !cfg.Events.ConsumerEnabled {
		return nil, nil //nolint:nilnil // consumer disabled
	}

	consumer := events.NewConsumer(infra.Redis, events.ConsumerConfig{
		Stream:     cfg.Events.Stream,
		Group:      cfg.Events.Group,
		ConsumerID: cfg.Events.ConsumerID,
	}, svc.Dispatcher, svc.Telemetry, log)

	if err := consumer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start page event consumer: %w", err)
	}
	return consumer, nil
}

func startScheduler(
	ctx context.Context, cfg *config.Config, svc *Services, log logger.Logger,
) (*maintenance.Scheduler, error) {
	if !cfg.Maintenance.Enabled {
		return nil, nil //nolint:nilnil // maintenance disabled
	}

	scheduler, err := maintenance.NewScheduler(svc.Refresher, cfg.Maintenance.Schedule,
		maintenance.Options{PerTopicLimit: cfg.Maintenance.PerTopicLimit}, log)
	if err != nil {
		return nil, fmt.Errorf("create maintenance scheduler: %w", err)
	}
	scheduler.Start(ctx)
	return scheduler, nil
}
