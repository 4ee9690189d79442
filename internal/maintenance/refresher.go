// Package maintenance regenerates link recommendations in batches: pages
// queued by the ingress path first, then fresh candidates from the page index.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/tasktype"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

const (
	defaultPerTopicLimit = 50
	defaultQueueBatch    = 100
	// candidateTerm selects pages that do not yet carry a link recommendation.
	candidateTerm = "-hasrecommendation:link"
	// candidateSort puts longer pages first; they yield more phrases.
	candidateSort = "length"
)

// Searcher finds candidate pages.
type Searcher interface {
	Search(ctx context.Context, req elasticsearch.SearchRequest) (*elasticsearch.SearchResult, error)
}

// PageSource fetches full page snapshots.
type PageSource interface {
	GetPage(ctx context.Context, title string) (*domain.Page, error)
}

// Processor evaluates and stores one candidate.
type Processor interface {
	ProcessCandidate(ctx context.Context, taskType domain.TaskType, page domain.Page, force bool) (domain.EvalStatus, error)
}

// Queue yields titles queued for regeneration.
type Queue interface {
	Drain(ctx context.Context, n int) ([]string, error)
}

// Options select what a run covers.
type Options struct {
	// TopicIDs restricts candidate search to these topics; empty means no
	// topic filter.
	TopicIDs      []string
	PerTopicLimit int
	Force         bool
	// DryRun searches and counts candidates without evaluating them.
	DryRun bool
}

// Stats summarize a run.
type Stats struct {
	Candidates int                         `json:"candidates"`
	Queued     int                         `json:"queued"`
	Evaluated  int                         `json:"evaluated"`
	Stored     int                         `json:"stored"`
	Rejected   map[domain.NotGoodCause]int `json:"rejected"`
	Errors     int                         `json:"errors"`
	Duration   time.Duration               `json:"duration"`
}

// RefresherConfig holds the static settings of a Refresher.
type RefresherConfig struct {
	PagesPerSecond float64
	QueueBatch     int
	PerTopicLimit  int
}

// Refresher drives the recommendation updater over candidate pages.
type Refresher struct {
	config    configloader.Provider
	searcher  Searcher
	pages     PageSource
	processor Processor
	queue     Queue
	limiter   *rate.Limiter
	cfg       RefresherConfig
	telemetry *telemetry.Provider
	log       logger.Logger
}

// NewRefresher creates a refresher. queue may be nil.
func NewRefresher(
	config configloader.Provider,
	searcher Searcher,
	pages PageSource,
	processor Processor,
	queue Queue,
	cfg RefresherConfig,
	tp *telemetry.Provider,
	log logger.Logger,
) *Refresher {
	if cfg.QueueBatch <= 0 {
		cfg.QueueBatch = defaultQueueBatch
	}
	if cfg.PerTopicLimit <= 0 {
		cfg.PerTopicLimit = defaultPerTopicLimit
	}

	limit := rate.Inf
	if cfg.PagesPerSecond > 0 {
		limit = rate.Limit(cfg.PagesPerSecond)
	}

	return &Refresher{
		config:    config,
		searcher:  searcher,
		pages:     pages,
		processor: processor,
		queue:     queue,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
		telemetry: tp,
		log:       log,
	}
}

// run is the state of one Run call.
type run struct {
	opts      Options
	taskTypes []domain.TaskType
	seen      map[int64]bool
	stats     *Stats
}

// Run processes the refresh queue, then searches each link-recommendation
// task type for candidates. Per-page failures are counted, not returned.
func (r *Refresher) Run(ctx context.Context, opts Options) (*Stats, error) {
	started := time.Now()
	stats := &Stats{Rejected: make(map[domain.NotGoodCause]int)}

	err := r.run(ctx, opts, stats)
	stats.Duration = time.Since(started)
	r.telemetry.RecordRefresh(stats.Duration, err)

	if err != nil {
		return stats, err
	}

	r.log.Info("Recommendation refresh finished",
		logger.Int("candidates", stats.Candidates),
		logger.Int("queued", stats.Queued),
		logger.Int("evaluated", stats.Evaluated),
		logger.Int("stored", stats.Stored),
		logger.Int("errors", stats.Errors),
		logger.Duration("duration", stats.Duration),
		logger.Bool("dry_run", opts.DryRun),
	)
	return stats, nil
}

func (r *Refresher) run(ctx context.Context, opts Options, stats *Stats) error {
	all, err := r.config.TaskTypes(ctx)
	if err != nil {
		return fmt.Errorf("load task types: %w", err)
	}

	var taskTypes []domain.TaskType
	for _, t := range all {
		if t.Handler == domain.HandlerLinkRecommendation {
			taskTypes = append(taskTypes, t)
		}
	}
	if len(taskTypes) == 0 {
		r.log.Info("No link recommendation task types configured")
		return nil
	}

	topics, err := r.resolveTopics(ctx, opts.TopicIDs)
	if err != nil {
		return err
	}

	state := &run{opts: opts, taskTypes: taskTypes, seen: make(map[int64]bool), stats: stats}

	if err := r.drainQueue(ctx, state); err != nil {
		return err
	}

	limit := opts.PerTopicLimit
	if limit <= 0 {
		limit = r.cfg.PerTopicLimit
	}

	for _, taskType := range taskTypes {
		for _, query := range candidateQueries(taskType, topics) {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.searchAndProcess(ctx, state, taskType, query, limit)
		}
	}
	return nil
}

func (r *Refresher) resolveTopics(ctx context.Context, ids []string) ([]domain.Topic, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	all, err := r.config.Topics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}

	var topics []domain.Topic
	for _, t := range all {
		if slices.Contains(ids, t.ID) {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no configured topic matches %v", ids)
	}
	return topics, nil
}

// candidateQueries returns one query string per topic, or a single
// unfiltered query when topics is empty.
func candidateQueries(taskType domain.TaskType, topics []domain.Topic) []string {
	base := candidateTerm + tasktype.ExclusionSuffix(taskType)
	if len(topics) == 0 {
		return []string{base}
	}

	queries := make([]string, 0, len(topics))
	for _, t := range topics {
		if predicate := t.Predicate(); predicate != "" {
			queries = append(queries, base+" "+predicate)
		}
	}
	return queries
}

func (r *Refresher) drainQueue(ctx context.Context, state *run) error {
	if r.queue == nil || state.opts.DryRun {
		return nil
	}

	titles, err := r.queue.Drain(ctx, r.cfg.QueueBatch)
	if err != nil {
		r.log.Warn("Failed to drain refresh queue", logger.Error(err))
		state.stats.Errors++
		return nil
	}

	state.stats.Queued = len(titles)
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, taskType := range state.taskTypes {
			r.process(ctx, state, taskType, title, true)
		}
	}
	return nil
}

func (r *Refresher) searchAndProcess(
	ctx context.Context, state *run, taskType domain.TaskType, query string, limit int,
) {
	result, err := r.searcher.Search(ctx, elasticsearch.SearchRequest{
		QueryString: query,
		Sort:        candidateSort,
		Size:        limit,
	})
	if err != nil {
		r.log.Warn("Candidate search failed",
			logger.TaskType(taskType.ID),
			logger.String("query", query),
			logger.Error(err),
		)
		state.stats.Errors++
		return
	}

	for _, hit := range result.Hits {
		if state.seen[hit.PageID] {
			continue
		}
		state.seen[hit.PageID] = true
		state.stats.Candidates++

		if state.opts.DryRun {
			continue
		}
		r.process(ctx, state, taskType, hit.Title, state.opts.Force)
	}
}

func (r *Refresher) process(ctx context.Context, state *run, taskType domain.TaskType, title string, force bool) {
	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	page, err := r.pages.GetPage(ctx, title)
	if err != nil {
		if !errors.Is(err, elasticsearch.ErrPageNotFound) {
			state.stats.Errors++
		}
		r.log.Debug("Skipping candidate page", logger.Title(title), logger.Error(err))
		return
	}
	state.seen[page.ID] = true

	status, err := r.processor.ProcessCandidate(ctx, taskType, *page, force)
	state.stats.Evaluated++
	if err != nil {
		state.stats.Errors++
		r.log.Warn("Failed to process candidate",
			logger.TaskType(taskType.ID),
			logger.Title(title),
			logger.Error(err),
		)
		return
	}

	if status.IsGood() {
		state.stats.Stored++
		return
	}
	state.stats.Rejected[status.Cause]++
}
