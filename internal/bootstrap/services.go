package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/completion"
	"github.com/jonesrussell/north-cloud/suggester/internal/config"
	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/database"
	"github.com/jonesrussell/north-cloud/suggester/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/suggester/internal/events"
	"github.com/jonesrussell/north-cloud/suggester/internal/ingress"
	"github.com/jonesrussell/north-cloud/suggester/internal/linkrec"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/maintenance"
	"github.com/jonesrussell/north-cloud/suggester/internal/suggester"
	"github.com/jonesrussell/north-cloud/suggester/internal/tasktype"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

// Infrastructure holds the backend clients.
type Infrastructure struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Pages *elasticsearch.PageIndex
}

// SetupInfrastructure connects to Postgres, Redis and Elasticsearch.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, log logger.Logger) (*Infrastructure, error) {
	db, err := SetupDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Database connection established")

	rdb, err := SetupRedis(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Redis connection established", logger.String("address", cfg.Redis.Address))

	pages, err := SetupElasticsearch(ctx, cfg, log)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, err
	}
	log.Info("Elasticsearch client initialized", logger.String("index", cfg.Elasticsearch.PagesIndex))

	return &Infrastructure{DB: db, Redis: rdb, Pages: pages}, nil
}

// Close releases the clients.
func (i *Infrastructure) Close(log logger.Logger) {
	if err := i.Redis.Close(); err != nil {
		log.Error("Failed to close Redis client", logger.Error(err))
	}
	if err := i.DB.Close(); err != nil {
		log.Error("Failed to close database connection", logger.Error(err))
	}
}

// Services are the wired application components.
type Services struct {
	Telemetry *telemetry.Provider
	Loader    *configloader.Loader
	// Config is the loader seen through the topic decorator.
	Config                configloader.Provider
	Repository            *database.LinkRecommendationRepository
	Updater               *linkrec.Updater
	StoredRecommendations *linkrec.DBProvider
	Recommendations       *linkrec.PruningProvider
	Cache                 *suggester.CacheSuggester
	Suggester             suggester.TaskSuggester
	Completions           *completion.Service
	Queue                 *maintenance.RefreshQueue
	Refresher             *maintenance.Refresher
	Dispatcher            *ingress.Dispatcher
	Publisher             *events.Publisher
}

// BuildServices wires the components over infra.
func BuildServices(ctx context.Context, cfg *config.Config, infra *Infrastructure, log logger.Logger) *Services {
	tp := telemetry.NewProvider()
	s := &Services{Telemetry: tp}

	s.Loader = configloader.NewLoader(configloader.FileSource{Path: cfg.Tasks.ConfigPath}, log)
	for _, id := range cfg.Tasks.DisabledTaskTypes {
		s.Loader.DisableTaskType(id)
	}
	s.Config = configloader.NewTopicDecorator(
		s.Loader,
		configloader.TopicMode(cfg.Tasks.TopicMode),
		cfg.Tasks.ClassifierTopics,
		tasktype.NullTaskType(cfg.Tasks.NullTaskTerm),
	)

	s.Repository = database.NewLinkRecommendationRepository(infra.DB, infra.Pages)
	s.Updater = linkrec.NewUpdater(
		s.Repository,
		linkrec.NewGenerator(infra.Pages),
		infra.Pages,
		log,
		linkrec.WithTelemetry(tp),
		linkrec.WithApplicationVersion(cfg.Service.Version),
	)
	s.StoredRecommendations = linkrec.NewDBProvider(infra.Pages, s.Repository)
	s.Recommendations = linkrec.NewPruningProvider(s.StoredRecommendations, s.Repository, infra.Pages, tp, log)

	s.Completions = completion.NewService(infra.Redis, s.Config, tp, log)

	var chain suggester.TaskSuggester = suggester.New(ctx, s.Config, infra.Pages,
		suggester.WithTelemetry(tp), suggester.WithLogger(log))
	if cfg.Cache.Enabled {
		s.Cache = suggester.NewCacheSuggester(chain, infra.Redis, cfg.Cache.TTL, cfg.Cache.Size, tp, log)
		chain = s.Cache
	}
	chain = suggester.NewLinkRecommendationFilter(chain, s.Recommendations, log)
	s.Suggester = suggester.NewQualityGateSuggester(chain, s.Config, s.Completions, log)

	s.Queue = maintenance.NewRefreshQueue(infra.Redis, cfg.Maintenance.RefreshQueueKey)
	s.Refresher = maintenance.NewRefresher(
		s.Config,
		infra.Pages,
		infra.Pages,
		s.Updater,
		s.Queue,
		maintenance.RefresherConfig{
			PagesPerSecond: cfg.Maintenance.PagesPerSecond,
			QueueBatch:     cfg.Maintenance.RefreshQueueBatch,
			PerTopicLimit:  cfg.Maintenance.PerTopicLimit,
		},
		tp,
		log,
	)

	s.Dispatcher = ingress.NewDispatcher(log,
		ingress.NewRecommendationInvalidator(s.Repository, s.Queue, tp, log),
		ingress.NewIndexFlagClearer(infra.Pages, s.Repository, log),
	)
	s.Publisher = events.NewPublisher(infra.Redis, cfg.Events.Stream, log)

	return s
}
