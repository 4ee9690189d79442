// Package configloader turns the versioned task configuration document into
// typed task types and topics.
package configloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// Provider is the read surface shared by Loader and TopicDecorator.
type Provider interface {
	LoadTaskTypes(ctx context.Context) (map[string]domain.TaskType, error)
	TaskTypes(ctx context.Context) ([]domain.TaskType, error)
	Topics(ctx context.Context) ([]domain.Topic, error)
	LoadInfoboxTemplates(ctx context.Context) ([]string, error)
}

// Loader reads the configuration from a Source and caches the parsed result
// until Invalidate is called.
type Loader struct {
	source Source
	log    logger.Logger

	mu           sync.RWMutex
	cached       *Config
	disabled     map[string]bool
	enabled      map[string]bool
	materialized bool
}

// NewLoader creates a loader over source.
func NewLoader(source Source, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{
		source:   source,
		log:      log,
		disabled: map[string]bool{},
		enabled:  map[string]bool{},
	}
}

// DisableTaskType hides a task type. It panics once task types have been
// loaded.
func (l *Loader) DisableTaskType(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustNotBeMaterialized("DisableTaskType")
	l.disabled[id] = true
	delete(l.enabled, id)
}

// EnableTaskType re-enables a task type, including one disabled in the
// document. It panics once task types have been loaded.
func (l *Loader) EnableTaskType(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustNotBeMaterialized("EnableTaskType")
	l.enabled[id] = true
	delete(l.disabled, id)
}

func (l *Loader) mustNotBeMaterialized(op string) {
	if l.materialized {
		panic(fmt.Sprintf("configloader: %s called after task types were loaded", op))
	}
}

// Invalidate drops the cached configuration.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
	l.log.Info("Task configuration cache invalidated")
}

func (l *Loader) load(ctx context.Context) (*Config, error) {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	data, err := l.source.Load(ctx)
	if err != nil {
		return nil, asConfigError(err)
	}

	cfg, parseErr := Parse(data)
	if parseErr != nil {
		l.log.Warn("Task configuration rejected", logger.Error(parseErr))
		return nil, parseErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyToggles(cfg)
	l.cached = cfg
	l.materialized = true

	l.log.Info("Task configuration loaded",
		logger.Int("task_types", len(cfg.TaskTypes)),
		logger.Int("topics", len(cfg.Topics)),
	)
	return cfg, nil
}

func (l *Loader) applyToggles(cfg *Config) {
	for id := range cfg.Disabled {
		if l.enabled[id] {
			delete(cfg.Disabled, id)
		}
	}
	for id := range l.disabled {
		cfg.Disabled[id] = true
	}
}

// LoadTaskTypes returns the enabled task types keyed by ID.
func (l *Loader) LoadTaskTypes(ctx context.Context) (map[string]domain.TaskType, error) {
	cfg, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.TaskType, len(cfg.TaskTypes))
	for id, t := range cfg.TaskTypes {
		if !cfg.Disabled[id] {
			out[id] = t
		}
	}
	return out, nil
}

// TaskTypes returns the enabled task types ordered by ID.
func (l *Loader) TaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	m, err := l.LoadTaskTypes(ctx)
	if err != nil {
		return nil, err
	}
	return sortedTaskTypes(m), nil
}

// Topics returns the configured topics.
func (l *Loader) Topics(ctx context.Context) ([]domain.Topic, error) {
	cfg, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(cfg.Topics), nil
}

// LoadInfoboxTemplates returns the infobox template titles.
func (l *Loader) LoadInfoboxTemplates(ctx context.Context) ([]string, error) {
	cfg, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(cfg.InfoboxTemplates), nil
}

func sortedTaskTypes(m map[string]domain.TaskType) []domain.TaskType {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]domain.TaskType, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func asConfigError(err error) *ConfigError {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	return &ConfigError{Reason: ErrNoConfig, Err: err}
}
