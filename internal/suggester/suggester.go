// Package suggester finds structured tasks for a user: candidate pages that
// match the requested task types and topics.
package suggester

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// Pagination defaults.
const (
	DefaultLimit = 200
	MaxLimit     = 250
)

// Options control one suggestion request.
type Options struct {
	Limit    int
	Offset   int
	UseCache bool
	Debug    bool
}

func (o Options) normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	o.Limit = min(o.Limit, MaxLimit)
	o.Offset = max(o.Offset, 0)
	return o
}

// TaskSuggester returns task sets for a user.
type TaskSuggester interface {
	Suggest(ctx context.Context, userID string, filters domain.TaskSetFilters, opts Options) (*domain.TaskSet, error)
}

// SuggesterError means suggestions could not be computed at all, as opposed
// to an empty result.
type SuggesterError struct {
	Op  string
	Err error
}

func (e *SuggesterError) Error() string {
	return fmt.Sprintf("suggester %s: %v", e.Op, e.Err)
}

func (e *SuggesterError) Unwrap() error {
	return e.Err
}

// IsSuggesterError reports whether err carries a *SuggesterError.
func IsSuggesterError(err error) bool {
	var target *SuggesterError
	return errors.As(err, &target)
}

// ErrorForwardingSuggester fails every request with the error it was built
// with.
type ErrorForwardingSuggester struct {
	err error
}

// NewErrorForwardingSuggester creates a suggester that always returns err.
func NewErrorForwardingSuggester(err error) *ErrorForwardingSuggester {
	return &ErrorForwardingSuggester{err: err}
}

// Suggest implements TaskSuggester.
func (s *ErrorForwardingSuggester) Suggest(context.Context, string, domain.TaskSetFilters, Options) (*domain.TaskSet, error) {
	return nil, &SuggesterError{Op: "configuration", Err: s.err}
}

// New returns a search suggester, or an ErrorForwardingSuggester when the
// task configuration cannot be loaded.
func New(ctx context.Context, config configloader.Provider, searcher Searcher, opts ...SearchOption) TaskSuggester {
	if _, err := config.LoadTaskTypes(ctx); err != nil {
		return NewErrorForwardingSuggester(err)
	}
	if _, err := config.Topics(ctx); err != nil {
		return NewErrorForwardingSuggester(err)
	}
	return NewSearchTaskSuggester(config, searcher, opts...)
}
