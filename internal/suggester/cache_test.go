package suggester_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/suggester"
)

type countingSuggester struct {
	calls int
	opts  []suggester.Options
	tasks []domain.Task
}

func (c *countingSuggester) Suggest(
	_ context.Context, _ string, filters domain.TaskSetFilters, opts suggester.Options,
) (*domain.TaskSet, error) {
	c.calls++
	c.opts = append(c.opts, opts)
	to := min(opts.Offset+opts.Limit, len(c.tasks))
	return domain.NewTaskSet(c.tasks[opts.Offset:to], len(c.tasks), opts.Offset, filters), nil
}

func fiveTasks() []domain.Task {
	tt := domain.TaskType{ID: "copyedit", Handler: domain.HandlerTemplateBased, Difficulty: domain.DifficultyEasy}
	tasks := make([]domain.Task, 5)
	for i := range tasks {
		tasks[i] = domain.Task{TaskType: tt, PageID: int64(i + 1), Title: "Page"}
	}
	return tasks
}

func newCache(t *testing.T, inner suggester.TaskSuggester) (*suggester.CacheSuggester, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return suggester.NewCacheSuggester(inner, rdb, time.Hour, 100, nil, logger.NewNop()), mr
}

func TestCacheSuggester_ReusesForSameFilters(t *testing.T) {
	t.Parallel()

	inner := &countingSuggester{tasks: fiveTasks()}
	cache, _ := newCache(t, inner)
	filters := domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit"}}

	first, err := cache.Suggest(t.Context(), "u1", filters, suggester.Options{Limit: 2, UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	reordered := domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit", "copyedit"}, TopicsMatchMode: domain.TopicsMatchOR}
	second, err := cache.Suggest(t.Context(), "u1", reordered, suggester.Options{Limit: 2, Offset: 2, UseCache: true})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "equivalent filters must hit the cache")
	require.Equal(t, 2, second.Len())
	assert.Equal(t, int64(3), second.At(0).PageID)
	assert.Equal(t, 5, second.TotalCount())
	assert.Equal(t, 100, inner.opts[0].Limit)
	assert.Zero(t, inner.opts[0].Offset)
}

func TestCacheSuggester_RefetchesOnNewFiltersOrWithoutCache(t *testing.T) {
	t.Parallel()

	inner := &countingSuggester{tasks: fiveTasks()}
	cache, _ := newCache(t, inner)

	_, err := cache.Suggest(t.Context(), "u1", domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit"}},
		suggester.Options{UseCache: true})
	require.NoError(t, err)

	_, err = cache.Suggest(t.Context(), "u1", domain.TaskSetFilters{TaskTypeIDs: []string{"links"}},
		suggester.Options{UseCache: true})
	require.NoError(t, err)

	_, err = cache.Suggest(t.Context(), "u1", domain.TaskSetFilters{TaskTypeIDs: []string{"links"}},
		suggester.Options{UseCache: false})
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}

func TestCacheSuggester_ExpiresAndInvalidates(t *testing.T) {
	t.Parallel()

	inner := &countingSuggester{tasks: fiveTasks()}
	cache, mr := newCache(t, inner)
	filters := domain.TaskSetFilters{}

	_, err := cache.Suggest(t.Context(), "u1", filters, suggester.Options{UseCache: true})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = cache.Suggest(t.Context(), "u1", filters, suggester.Options{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	require.NoError(t, cache.Invalidate(t.Context(), "u1"))
	_, err = cache.Suggest(t.Context(), "u1", filters, suggester.Options{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCacheSuggester_AnonymousBypassesCache(t *testing.T) {
	t.Parallel()

	inner := &countingSuggester{tasks: fiveTasks()}
	cache, mr := newCache(t, inner)

	_, err := cache.Suggest(t.Context(), "", domain.TaskSetFilters{}, suggester.Options{Limit: 2, UseCache: true})
	require.NoError(t, err)

	assert.Empty(t, mr.Keys())
	assert.Equal(t, 2, inner.opts[0].Limit)
}

func TestCacheSuggester_RedisDownFallsThrough(t *testing.T) {
	t.Parallel()

	inner := &countingSuggester{tasks: fiveTasks()}
	cache, mr := newCache(t, inner)
	mr.Close()

	set, err := cache.Suggest(t.Context(), "u1", domain.TaskSetFilters{}, suggester.Options{Limit: 3, UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
}
