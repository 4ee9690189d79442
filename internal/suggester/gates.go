package suggester

import (
	"context"
	"maps"
	"slices"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// DailyCounter reports how many tasks of a type a user completed today.
type DailyCounter interface {
	DailyCount(ctx context.Context, userID, taskTypeID string) (int, error)
}

// QualityGateSuggester attaches daily limit flags for structured task types.
type QualityGateSuggester struct {
	inner   TaskSuggester
	config  configloader.Provider
	counter DailyCounter
	log     logger.Logger
}

// NewQualityGateSuggester wraps inner.
func NewQualityGateSuggester(
	inner TaskSuggester, config configloader.Provider, counter DailyCounter, log logger.Logger,
) *QualityGateSuggester {
	return &QualityGateSuggester{inner: inner, config: config, counter: counter, log: log}
}

// Suggest implements TaskSuggester.
func (q *QualityGateSuggester) Suggest(
	ctx context.Context, userID string, filters domain.TaskSetFilters, opts Options,
) (*domain.TaskSet, error) {
	set, err := q.inner.Suggest(ctx, userID, filters, opts)
	if err != nil || userID == "" {
		return set, err
	}

	taskTypes, cfgErr := q.config.LoadTaskTypes(ctx)
	if cfgErr != nil {
		return set, nil
	}

	ids := filters.TaskTypeIDs
	if len(ids) == 0 {
		ids = slices.Sorted(maps.Keys(taskTypes))
	}

	gates := domain.QualityGates{}
	for _, id := range ids {
		tt, ok := taskTypes[id]
		if !ok || !tt.IsStructured() {
			continue
		}

		count, countErr := q.counter.DailyCount(ctx, userID, id)
		if countErr != nil {
			q.log.Warn("Daily task count unavailable", logger.TaskType(id), logger.Error(countErr))
			continue
		}
		gates[id] = map[string]any{
			"dailyLimit": count >= tt.MaximumTasksPerDay(),
			"dailyCount": count,
		}
	}

	if len(gates) == 0 {
		return set, nil
	}
	return set.WithQualityGates(gates), nil
}
