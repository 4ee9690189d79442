package suggester

import (
	"context"
	"errors"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/linkrec"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// LinkRecommendationFilter drops link-recommendation tasks whose page has
// nothing left to suggest.
type LinkRecommendationFilter struct {
	inner    TaskSuggester
	provider linkrec.Provider
	log      logger.Logger
}

// NewLinkRecommendationFilter wraps inner.
func NewLinkRecommendationFilter(inner TaskSuggester, provider linkrec.Provider, log logger.Logger) *LinkRecommendationFilter {
	return &LinkRecommendationFilter{inner: inner, provider: provider, log: log}
}

// Suggest implements TaskSuggester.
func (f *LinkRecommendationFilter) Suggest(
	ctx context.Context, userID string, filters domain.TaskSetFilters, opts Options,
) (*domain.TaskSet, error) {
	set, err := f.inner.Suggest(ctx, userID, filters, opts)
	if err != nil {
		return nil, err
	}

	return set.WithInvalid(func(t domain.Task) bool {
		if t.TaskType.Handler != domain.HandlerLinkRecommendation {
			return false
		}
		_, getErr := f.provider.Get(ctx, t.Title, t.TaskType)
		if getErr == nil {
			return false
		}
		if !errors.Is(getErr, linkrec.ErrAllLinksPruned) && !errors.Is(getErr, linkrec.ErrNoRecommendation) {
			f.log.Warn("Dropping link recommendation task",
				logger.Title(t.Title),
				logger.Error(getErr),
			)
		}
		return true
	}), nil
}
