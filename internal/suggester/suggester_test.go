package suggester_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/suggester"
)

const tasksDoc = `{
  "version": "2.0.0",
  "taskTypes": {
    "copyedit": {"difficulty": "easy", "handler": "template-based", "templates": ["Copy edit"]},
    "link-recommendation": {"difficulty": "easy", "handler": "link-recommendation", "settings": {"maximumTasksPerDay": 3}}
  },
  "topics": {
    "art": {"kind": "morelike", "referencePages": ["Painting"]},
    "climate": {"kind": "campaign", "searchExpression": "articletopic:climate"}
  }
}`

func newConfig() *configloader.Loader {
	return configloader.NewLoader(configloader.StaticSource(tasksDoc), logger.NewNop())
}

// fakeSearcher answers by the first query-string clause.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]*elasticsearch.SearchResult
	err     error
	queries []elasticsearch.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req elasticsearch.SearchRequest) (*elasticsearch.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, req)
	if f.err != nil {
		return nil, f.err
	}
	for prefix, res := range f.results {
		if strings.HasPrefix(req.QueryString, prefix) {
			return res, nil
		}
	}
	return &elasticsearch.SearchResult{}, nil
}

func hits(total int, ids ...int64) *elasticsearch.SearchResult {
	res := &elasticsearch.SearchResult{Total: total}
	for _, id := range ids {
		res.Hits = append(res.Hits, elasticsearch.Hit{PageID: id, Title: "Page " + string(rune('A'+id))})
	}
	return res
}

func TestSearchTaskSuggester_MergesAndDeduplicates(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string]*elasticsearch.SearchResult{
		"hastemplate":       hits(10, 1, 2, 3),
		"hasrecommendation": hits(5, 3, 4),
	}}
	s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

	set, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{}, suggester.Options{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, set.Len())
	assert.Equal(t, 15, set.TotalCount())
	assert.Equal(t, "copyedit", set.At(0).TaskType.ID)
	assert.Equal(t, int64(4), set.At(3).PageID)
	assert.Equal(t, "link-recommendation", set.At(3).TaskType.ID)
}

func TestSearchTaskSuggester_OffsetAndLimit(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string]*elasticsearch.SearchResult{
		"hastemplate": hits(4, 1, 2, 3, 4),
	}}
	s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

	set, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit"}},
		suggester.Options{Limit: 2, Offset: 1})
	require.NoError(t, err)

	require.Equal(t, 2, set.Len())
	assert.Equal(t, int64(2), set.At(0).PageID)
	assert.Equal(t, 1, set.Offset())
	require.Len(t, searcher.queries, 1)
	assert.Equal(t, 3, searcher.queries[0].Size, "size covers offset plus limit")
}

func TestSearchTaskSuggester_TopicQueries(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

	_, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{
		TaskTypeIDs: []string{"copyedit", "unknown"},
		TopicIDs:    []string{"art", "climate", "nope"},
	}, suggester.Options{})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 2)
	assert.Contains(t, searcher.queries[0].QueryString, `morelikethis:"Painting"`)
	assert.Contains(t, searcher.queries[1].QueryString, "articletopic:climate")
}

func TestSearchTaskSuggester_AndModeCombinesTopics(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

	_, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{
		TaskTypeIDs:     []string{"copyedit"},
		TopicIDs:        []string{"art", "climate"},
		TopicsMatchMode: domain.TopicsMatchAND,
	}, suggester.Options{})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	q := searcher.queries[0].QueryString
	assert.Contains(t, q, `morelikethis:"Painting"`)
	assert.Contains(t, q, "articletopic:climate")
}

func TestSearchTaskSuggester_SearchErrorIsSuggesterError(t *testing.T) {
	t.Parallel()

	s := suggester.NewSearchTaskSuggester(newConfig(), &fakeSearcher{err: errors.New("cluster red")})

	_, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{}, suggester.Options{})
	require.Error(t, err)
	assert.True(t, suggester.IsSuggesterError(err))
}

func TestSearchTaskSuggester_Debug(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string]*elasticsearch.SearchResult{"hastemplate": hits(1, 1)}}
	s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

	set, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit"}},
		suggester.Options{Debug: true})
	require.NoError(t, err)
	assert.Contains(t, set.DebugData(), "copyedit")
}

func TestNew_ForwardsConfigurationErrors(t *testing.T) {
	t.Parallel()

	broken := configloader.NewLoader(configloader.StaticSource(`{"version": "9.9.9"}`), logger.NewNop())

	s := suggester.New(t.Context(), broken, &fakeSearcher{})
	_, ok := s.(*suggester.ErrorForwardingSuggester)
	require.True(t, ok, "expected an ErrorForwardingSuggester, got %T", s)

	set, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{}, suggester.Options{})
	assert.Nil(t, set)

	var suggesterErr *suggester.SuggesterError
	require.ErrorAs(t, err, &suggesterErr)
	assert.ErrorIs(t, err, configloader.ErrUnsupportedVersion)
}

func TestNew_UsesSearchWhenConfigLoads(t *testing.T) {
	t.Parallel()

	s := suggester.New(t.Context(), newConfig(), &fakeSearcher{})
	_, ok := s.(*suggester.SearchTaskSuggester)
	assert.True(t, ok)
}

func TestSearchTaskSuggester_UnknownTopicsMatchNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		topics []string
		mode   domain.TopicsMatchMode
	}{
		{name: "or mode", topics: []string{"nope"}},
		{name: "and mode", topics: []string{"nope", "missing"}, mode: domain.TopicsMatchAND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			searcher := &fakeSearcher{results: map[string]*elasticsearch.SearchResult{"hastemplate": hits(3, 1, 2, 3)}}
			s := suggester.NewSearchTaskSuggester(newConfig(), searcher)

			set, err := s.Suggest(t.Context(), "u1", domain.TaskSetFilters{
				TaskTypeIDs:     []string{"copyedit"},
				TopicIDs:        tt.topics,
				TopicsMatchMode: tt.mode,
			}, suggester.Options{Limit: 10})
			if err != nil {
				t.Fatalf("Suggest() error = %v", err)
			}
			if set.Len() != 0 || set.TotalCount() != 0 {
				t.Errorf("got %d tasks (total %d), want empty", set.Len(), set.TotalCount())
			}
			if len(searcher.queries) != 0 {
				t.Errorf("ran %d searches, want none", len(searcher.queries))
			}
		})
	}
}
