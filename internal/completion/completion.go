// Package completion records finished tasks per user and reports milestones.
package completion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

const (
	keyPrefix = "suggester:completions:"
	// dailyTTL outlives the day so late requests near midnight still count.
	dailyTTL = 48 * time.Hour
)

// ErrUnknownTaskType is returned when the task type is not configured.
var ErrUnknownTaskType = errors.New("unknown task type")

// Milestones are the total completion counts that are celebrated.
var Milestones = []int64{1, 5, 10, 25, 50, 100, 250, 500}

// Result is the outcome of one completion.
type Result struct {
	TaskTypeID string `json:"taskTypeId"`
	RevisionID int64  `json:"revisionId"`
	DailyCount int64  `json:"dailyCount"`
	TotalCount int64  `json:"totalCount"`
	// Milestone is the reached milestone, or 0.
	Milestone int64 `json:"milestone,omitempty"`
}

// Service counts completions in Redis.
type Service struct {
	client    redis.Cmdable
	config    configloader.Provider
	telemetry *telemetry.Provider
	log       logger.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a completion service.
func NewService(
	client redis.Cmdable, config configloader.Provider, tp *telemetry.Provider, log logger.Logger, opts ...Option,
) *Service {
	s := &Service{client: client, config: config, telemetry: tp, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) dailyKey(userID, taskTypeID string) string {
	return keyPrefix + userID + ":" + taskTypeID + ":" + s.now().UTC().Format(time.DateOnly)
}

func totalKey(userID string) string {
	return keyPrefix + userID + ":total"
}

// Complete records that userID finished a task of taskTypeID with the edit
// revisionID. The milestone is computed from the incremented total, so
// concurrent completions never report the same milestone twice.
func (s *Service) Complete(ctx context.Context, userID, taskTypeID string, revisionID int64) (*Result, error) {
	taskTypes, err := s.config.LoadTaskTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load task types: %w", err)
	}
	if _, ok := taskTypes[taskTypeID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskTypeID)
	}

	dailyKey := s.dailyKey(userID, taskTypeID)

	var daily, total *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		daily = pipe.Incr(ctx, dailyKey)
		pipe.Expire(ctx, dailyKey, dailyTTL)
		total = pipe.Incr(ctx, totalKey(userID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("increment completion counters: %w", err)
	}

	result := &Result{
		TaskTypeID: taskTypeID,
		RevisionID: revisionID,
		DailyCount: daily.Val(),
		TotalCount: total.Val(),
	}
	if slices.Contains(Milestones, result.TotalCount) {
		result.Milestone = result.TotalCount
	}

	s.telemetry.RecordCompletion(taskTypeID)
	s.log.Info("Task completed",
		logger.String("user_id", userID),
		logger.TaskType(taskTypeID),
		logger.RevisionID(revisionID),
		logger.Int64("total", result.TotalCount),
	)
	return result, nil
}

// DailyCount returns how many tasks of taskTypeID userID completed today.
func (s *Service) DailyCount(ctx context.Context, userID, taskTypeID string) (int, error) {
	raw, err := s.client.Get(ctx, s.dailyKey(userID, taskTypeID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get daily count: %w", err)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse daily count: %w", err)
	}
	return n, nil
}

// TotalCount returns how many tasks userID completed overall.
func (s *Service) TotalCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.client.Get(ctx, totalKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get total count: %w", err)
	}
	return n, nil
}
