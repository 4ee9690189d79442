package suggester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

const cacheKeyPrefix = "suggester:taskset:"

// CacheSuggester keeps one fetched task set per user in Redis and pages
// through it while the filters stay the same.
type CacheSuggester struct {
	inner     TaskSuggester
	redis     redis.Cmdable
	ttl       time.Duration
	size      int
	telemetry *telemetry.Provider
	log       logger.Logger
}

// NewCacheSuggester wraps inner. size is how many tasks are fetched and
// cached per user.
func NewCacheSuggester(
	inner TaskSuggester,
	rdb redis.Cmdable,
	ttl time.Duration,
	size int,
	tp *telemetry.Provider,
	log logger.Logger,
) *CacheSuggester {
	return &CacheSuggester{inner: inner, redis: rdb, ttl: ttl, size: size, telemetry: tp, log: log}
}

// Suggest implements TaskSuggester. Anonymous requests bypass the cache.
func (c *CacheSuggester) Suggest(
	ctx context.Context, userID string, filters domain.TaskSetFilters, opts Options,
) (*domain.TaskSet, error) {
	opts = opts.normalized()
	if userID == "" {
		return c.inner.Suggest(ctx, userID, filters, opts)
	}

	if opts.UseCache {
		cached, err := c.load(ctx, userID)
		switch {
		case err != nil:
			c.telemetry.RecordCache("error")
			c.log.Warn("Task set cache read failed", logger.String("user_id", userID), logger.Error(err))
		case cached != nil && cached.Filters().Equal(filters):
			c.telemetry.RecordCache("hit")
			return page(cached, filters, opts), nil
		default:
			c.telemetry.RecordCache("miss")
		}
	}

	fetchOpts := opts
	fetchOpts.Limit = c.size
	fetchOpts.Offset = 0

	full, err := c.inner.Suggest(ctx, userID, filters, fetchOpts)
	if err != nil {
		return nil, err
	}

	if storeErr := c.store(ctx, userID, full); storeErr != nil {
		c.log.Warn("Task set cache write failed", logger.String("user_id", userID), logger.Error(storeErr))
	}
	return page(full, filters, opts), nil
}

// Invalidate drops the cached set for userID.
func (c *CacheSuggester) Invalidate(ctx context.Context, userID string) error {
	if err := c.redis.Del(ctx, cacheKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("delete cached task set: %w", err)
	}
	return nil
}

func (c *CacheSuggester) load(ctx context.Context, userID string) (*domain.TaskSet, error) {
	data, err := c.redis.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached task set: %w", err)
	}

	var set domain.TaskSet
	if decodeErr := json.Unmarshal(data, &set); decodeErr != nil {
		return nil, fmt.Errorf("decode cached task set: %w", decodeErr)
	}
	return &set, nil
}

func (c *CacheSuggester) store(ctx context.Context, userID string, set *domain.TaskSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode task set: %w", err)
	}
	if setErr := c.redis.Set(ctx, cacheKeyPrefix+userID, data, c.ttl).Err(); setErr != nil {
		return fmt.Errorf("set cached task set: %w", setErr)
	}
	return nil
}

// page cuts [offset, offset+limit) out of a fully fetched set.
func page(full *domain.TaskSet, filters domain.TaskSetFilters, opts Options) *domain.TaskSet {
	tasks := full.Tasks()
	from := min(opts.Offset, len(tasks))
	to := min(opts.Offset+opts.Limit, len(tasks))

	out := domain.NewTaskSet(tasks[from:to], full.TotalCount(), opts.Offset, filters)
	if gates := full.QualityGates(); gates != nil {
		out = out.WithQualityGates(gates)
	}
	if debug := full.DebugData(); debug != nil && opts.Debug {
		out = out.WithDebugData(debug)
	}
	return out
}
