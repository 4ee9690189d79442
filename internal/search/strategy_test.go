package search_test

import (
	"slices"
	"testing"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/search"
	"github.com/jonesrussell/north-cloud/suggester/internal/tasktype"
)

var (
	copyedit = domain.TaskType{ID: "copyedit", Handler: domain.HandlerTemplateBased, Templates: []string{"Copy edit"}}
	links    = domain.TaskType{ID: "links", Handler: domain.HandlerLinkRecommendation}
	art      = domain.Topic{ID: "art", Kind: domain.TopicMoreLike, ReferencePages: []string{"Painting"}}
	biology  = domain.Topic{ID: "biology", Kind: domain.TopicClassifier}
	empty    = domain.Topic{ID: "empty", Kind: domain.TopicMoreLike}
)

func keys(qs []search.Query) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Key
	}
	return out
}

func TestStrategy_CrossProduct(t *testing.T) {
	t.Parallel()

	qs := search.NewStrategy().Queries(
		[]domain.TaskType{copyedit, links},
		[]domain.Topic{art, empty, biology},
	)

	want := []string{"copyedit:art", "copyedit:biology", "links:art", "links:biology"}
	if got := keys(qs); !slices.Equal(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	tests := []struct {
		name      string
		query     search.Query
		wantQuery string
		wantSort  string
	}{
		{name: "template type", query: qs[0], wantQuery: `hastemplate:"Copy edit" morelikethis:"Painting"`, wantSort: search.SortRelevance},
		{name: "link type", query: qs[3], wantQuery: "hasrecommendation:link articletopic:biology", wantSort: search.SortUnderlinked},
	}

	for _, tt := range tests {
		if tt.query.QueryString != tt.wantQuery {
			t.Errorf("%s: query = %q, want %q", tt.name, tt.query.QueryString, tt.wantQuery)
		}
		if tt.query.Sort != tt.wantSort {
			t.Errorf("%s: sort = %q, want %q", tt.name, tt.query.Sort, tt.wantSort)
		}
	}
	if qs[0].Topic == nil || qs[0].Topic.ID != "art" {
		t.Errorf("topic = %+v, want art", qs[0].Topic)
	}
}

func TestStrategy_SkipsTypesWithoutTerm(t *testing.T) {
	t.Parallel()

	qs := search.NewStrategy().Queries(
		[]domain.TaskType{tasktype.NullTaskType(""), copyedit},
		[]domain.Topic{art},
	)
	if got := keys(qs); !slices.Equal(got, []string{"copyedit:art"}) {
		t.Errorf("keys = %v, want [copyedit:art]", got)
	}
}

func TestStrategy_NoTopics(t *testing.T) {
	t.Parallel()

	qs := search.NewStrategy().Queries([]domain.TaskType{copyedit, links}, nil)

	if got := keys(qs); !slices.Equal(got, []string{"copyedit", "links"}) {
		t.Fatalf("keys = %v, want [copyedit links]", got)
	}
	if qs[0].Topic != nil {
		t.Errorf("topic = %+v, want nil", qs[0].Topic)
	}
	if qs[1].QueryString != "hasrecommendation:link" {
		t.Errorf("query = %q", qs[1].QueryString)
	}
}

func TestStrategy_OnlyEmptyTopics(t *testing.T) {
	t.Parallel()

	qs := search.NewStrategy().Queries([]domain.TaskType{copyedit}, []domain.Topic{empty})
	if len(qs) != 0 {
		t.Errorf("got %d queries, want none", len(qs))
	}
}
