// Package telemetry provides Prometheus metrics and tracing for the suggester service.
package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "suggester"

// Metrics holds all suggester Prometheus metrics
type Metrics struct {
	// Candidate evaluation
	CandidatesEvaluated   *prometheus.CounterVec
	CandidatesRejected    *prometheus.CounterVec
	RecommendationsStored prometheus.Counter
	GenerationDuration    prometheus.Histogram

	// Serving
	LinksPruned    *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
	SearchErrors   *prometheus.CounterVec
	CacheRequests  *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec

	// Consistency and maintenance
	EventsProcessed *prometheus.CounterVec
	Invalidations   *prometheus.CounterVec
	RefreshRuns     *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

// Provider wraps telemetry providers. A nil *Provider records nothing.
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

var (
	sharedMetrics *Metrics
	metricsOnce   sync.Once
)

// NewProvider initializes telemetry. Metrics are registered with the default
// registry once per process and shared by every provider.
func NewProvider() *Provider {
	metricsOnce.Do(func() {
		sharedMetrics = initMetrics()
	})

	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: sharedMetrics,
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initCandidateMetrics(m)
	initServingMetrics(m)
	initMaintenanceMetrics(m)
	return m
}

func initCandidateMetrics(m *Metrics) {
	m.CandidatesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_candidates_evaluated_total",
		Help: "Total candidate pages evaluated for a link recommendation",
	}, []string{"task_type"})

	m.CandidatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_candidates_rejected_total",
		Help: "Candidate pages rejected, by cause",
	}, []string{"cause"})

	m.RecommendationsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suggester_recommendations_stored_total",
		Help: "Link recommendations written to the store",
	})

	m.GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "suggester_generation_duration_seconds",
		Help:    "Time to generate link candidates for one page",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
}

func initServingMetrics(m *Metrics) {
	m.LinksPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_links_pruned_total",
		Help: "Links removed from served recommendations, by reason",
	}, []string{"reason"})

	m.SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suggester_search_duration_seconds",
		Help:    "Time to run one task search query",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"task_type"})

	m.SearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_search_errors_total",
		Help: "Task search queries that failed",
	}, []string{"task_type"})

	m.CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_cache_requests_total",
		Help: "Task set cache lookups, by result",
	}, []string{"result"})

	m.TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_tasks_completed_total",
		Help: "Structured tasks acknowledged as completed",
	}, []string{"task_type"})
}

func initMaintenanceMetrics(m *Metrics) {
	m.EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_events_processed_total",
		Help: "Page change events handled, by type and outcome",
	}, []string{"event_type", "outcome"})

	m.Invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_invalidations_total",
		Help: "Stored recommendations removed by page changes",
	}, []string{"kind"})

	m.RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggester_refresh_runs_total",
		Help: "Maintenance refresh runs, by outcome",
	}, []string{"outcome"})

	m.RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "suggester_refresh_duration_seconds",
		Help:    "Duration of one maintenance refresh run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
}

// RecordEvaluation counts an evaluated candidate and, when cause is not
// empty, its rejection.
func (p *Provider) RecordEvaluation(taskType, cause string) {
	if p == nil {
		return
	}
	p.Metrics.CandidatesEvaluated.WithLabelValues(taskType).Inc()
	if cause != "" {
		p.Metrics.CandidatesRejected.WithLabelValues(cause).Inc()
	}
}

// RecordStored counts a stored recommendation and how long it took to build.
func (p *Provider) RecordStored(duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.RecommendationsStored.Inc()
	p.Metrics.GenerationDuration.Observe(duration.Seconds())
}

// RecordPruned adds n pruned links for reason.
func (p *Provider) RecordPruned(reason string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.Metrics.LinksPruned.WithLabelValues(reason).Add(float64(n))
}

// RecordSearch records one task search query.
func (p *Provider) RecordSearch(taskType string, duration time.Duration, err error) {
	if p == nil {
		return
	}
	p.Metrics.SearchDuration.WithLabelValues(taskType).Observe(duration.Seconds())
	if err != nil {
		p.Metrics.SearchErrors.WithLabelValues(taskType).Inc()
	}
}

// RecordCache records a cache lookup result: hit, miss or error.
func (p *Provider) RecordCache(result string) {
	if p == nil {
		return
	}
	p.Metrics.CacheRequests.WithLabelValues(result).Inc()
}

// RecordCompletion counts a completed task.
func (p *Provider) RecordCompletion(taskType string) {
	if p == nil {
		return
	}
	p.Metrics.TasksCompleted.WithLabelValues(taskType).Inc()
}

// RecordEvent counts a handled page change event.
func (p *Provider) RecordEvent(eventType string, err error) {
	if p == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.Metrics.EventsProcessed.WithLabelValues(eventType, outcome).Inc()
}

// RecordInvalidation counts removed recommendations.
func (p *Provider) RecordInvalidation(kind string, n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.Metrics.Invalidations.WithLabelValues(kind).Add(float64(n))
}

// RecordRefresh records a maintenance run.
func (p *Provider) RecordRefresh(duration time.Duration, err error) {
	if p == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.Metrics.RefreshRuns.WithLabelValues(outcome).Inc()
	p.Metrics.RefreshDuration.Observe(duration.Seconds())
}

// StartSpan starts a new trace span. The caller ends it. A nil provider
// uses the global tracer.
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(serviceName)
	if p != nil && p.Tracer != nil {
		tracer = p.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
