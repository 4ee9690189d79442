package suggester

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/search"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

// Searcher runs keyword queries against the page index.
type Searcher interface {
	Search(ctx context.Context, req elasticsearch.SearchRequest) (*elasticsearch.SearchResult, error)
}

// SearchTaskSuggester runs one query per task type and topic and merges the
// results.
type SearchTaskSuggester struct {
	config    configloader.Provider
	strategy  *search.Strategy
	searcher  Searcher
	telemetry *telemetry.Provider
	log       logger.Logger
}

// SearchOption configures a SearchTaskSuggester.
type SearchOption func(*SearchTaskSuggester)

// WithTelemetry records query timings and spans.
func WithTelemetry(tp *telemetry.Provider) SearchOption {
	return func(s *SearchTaskSuggester) { s.telemetry = tp }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) SearchOption {
	return func(s *SearchTaskSuggester) { s.log = log }
}

// NewSearchTaskSuggester creates a search-backed suggester.
func NewSearchTaskSuggester(config configloader.Provider, searcher Searcher, opts ...SearchOption) *SearchTaskSuggester {
	s := &SearchTaskSuggester{
		config:   config,
		strategy: search.NewStrategy(),
		searcher: searcher,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest implements TaskSuggester.
func (s *SearchTaskSuggester) Suggest(
	ctx context.Context, _ string, filters domain.TaskSetFilters, opts Options,
) (*domain.TaskSet, error) {
	opts = opts.normalized()

	taskTypes, topics, err := s.resolveFilters(ctx, filters)
	if err != nil {
		return nil, &SuggesterError{Op: "configuration", Err: err}
	}
	// Requested topics that are all unknown match nothing.
	if len(filters.TopicIDs) > 0 && len(topics) == 0 {
		return domain.NewTaskSet(nil, 0, opts.Offset, filters), nil
	}

	queries := s.strategy.Queries(taskTypes, topics)
	size := opts.Offset + opts.Limit

	var (
		tasks []domain.Task
		total int
		debug map[string]any
	)
	seen := make(map[int64]int)
	if opts.Debug {
		debug = make(map[string]any, len(queries))
	}

	for _, q := range queries {
		res, searchErr := s.run(ctx, q, size)
		if searchErr != nil {
			return nil, &SuggesterError{Op: "search " + q.Key, Err: searchErr}
		}
		if debug != nil {
			debug[q.Key] = map[string]any{"query": q.QueryString, "dsl": res.Query, "total": res.Total}
		}

		total += res.Total
		for _, hit := range res.Hits {
			if i, dup := seen[hit.PageID]; dup {
				tasks[i].TopicScores = mergeScores(tasks[i].TopicScores, hit.TopicScores)
				continue
			}
			seen[hit.PageID] = len(tasks)
			tasks = append(tasks, domain.Task{
				TaskType:    q.TaskType,
				Title:       hit.Title,
				PageID:      hit.PageID,
				TopicScores: maps.Clone(hit.TopicScores),
			})
		}
	}

	from := min(opts.Offset, len(tasks))
	to := min(opts.Offset+opts.Limit, len(tasks))

	set := domain.NewTaskSet(tasks[from:to], total, opts.Offset, filters)
	if debug != nil {
		set = set.WithDebugData(debug)
	}
	return set, nil
}

func (s *SearchTaskSuggester) run(ctx context.Context, q search.Query, size int) (*elasticsearch.SearchResult, error) {
	ctx, span := s.telemetry.StartSpan(ctx, "suggester.search",
		attribute.String("query.key", q.Key),
		attribute.String("task_type", q.TaskType.ID),
	)
	defer span.End()

	started := time.Now()
	res, err := s.searcher.Search(ctx, elasticsearch.SearchRequest{
		QueryString: q.QueryString,
		Sort:        q.Sort,
		From:        0,
		Size:        size,
	})
	s.telemetry.RecordSearch(q.TaskType.ID, time.Since(started), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("Task search failed", logger.String("query_key", q.Key), logger.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("hits.total", res.Total))
	return res, nil
}

// resolveFilters maps filter IDs onto configured task types and topics.
// Unknown IDs are ignored; an empty task type filter selects every type.
func (s *SearchTaskSuggester) resolveFilters(
	ctx context.Context, filters domain.TaskSetFilters,
) ([]domain.TaskType, []domain.Topic, error) {
	all, err := s.config.TaskTypes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load task types: %w", err)
	}

	taskTypes := all
	if len(filters.TaskTypeIDs) > 0 {
		taskTypes = nil
		for _, tt := range all {
			if slices.Contains(filters.TaskTypeIDs, tt.ID) {
				taskTypes = append(taskTypes, tt)
			}
		}
	}

	if len(filters.TopicIDs) == 0 {
		return taskTypes, nil, nil
	}

	allTopics, err := s.config.Topics(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load topics: %w", err)
	}

	var topics []domain.Topic
	for _, t := range allTopics {
		if slices.Contains(filters.TopicIDs, t.ID) {
			topics = append(topics, t)
		}
	}

	if filters.TopicsMatchMode == domain.TopicsMatchAND && len(topics) > 1 {
		topics = []domain.Topic{intersectTopics(topics)}
	}
	return taskTypes, topics, nil
}

// intersectTopics combines topics into one whose predicate requires all of
// them.
func intersectTopics(topics []domain.Topic) domain.Topic {
	ids := make([]string, 0, len(topics))
	predicates := make([]string, 0, len(topics))
	for _, t := range topics {
		if p := t.Predicate(); p != "" {
			ids = append(ids, t.ID)
			predicates = append(predicates, p)
		}
	}
	return domain.Topic{
		ID:               strings.Join(ids, "+"),
		Kind:             domain.TopicCampaign,
		SearchExpression: strings.Join(predicates, " "),
	}
}

func mergeScores(into, from map[string]float64) map[string]float64 {
	if len(from) == 0 {
		return into
	}
	if into == nil {
		into = make(map[string]float64, len(from))
	}
	for k, v := range from {
		if v > into[k] {
			into[k] = v
		}
	}
	return into
}
