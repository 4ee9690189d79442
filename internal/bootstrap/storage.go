package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/config"
	"github.com/jonesrussell/north-cloud/suggester/internal/database"
	"github.com/jonesrussell/north-cloud/suggester/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

const redisPingTimeout = 5 * time.Second

// SetupDatabase opens the Postgres pool.
func SetupDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.NewPostgresConnection(ctx, database.Config{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnectionMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// SetupRedis creates a Redis client and checks it answers.
func SetupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// SetupElasticsearch connects to the cluster and returns the page index.
func SetupElasticsearch(ctx context.Context, cfg *config.Config, log logger.Logger) (*elasticsearch.PageIndex, error) {
	client, err := elasticsearch.NewClient(ctx, elasticsearch.Config{
		URL:        cfg.Elasticsearch.URL,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		MaxRetries: cfg.Elasticsearch.MaxRetries,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return elasticsearch.NewPageIndex(client, cfg.Elasticsearch.PagesIndex), nil
}
