package domain_test

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want, key string
	}{
		{in: "foo_bar", want: "Foo bar", key: "Foo_bar"},
		{in: "  élan   vital ", want: "Élan vital", key: "Élan_vital"},
		{in: "", want: "", key: ""},
	}

	for _, tt := range tests {
		if got := domain.NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := domain.TitleKey(tt.in); got != tt.key {
			t.Errorf("TitleKey(%q) = %q, want %q", tt.in, got, tt.key)
		}
	}
}

func TestTopic_Predicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		topic domain.Topic
		want  string
	}{
		{
			name:  "morelike",
			topic: domain.Topic{ID: "art", Kind: domain.TopicMoreLike, ReferencePages: []string{"Painting", "Sculpture"}},
			want:  `morelikethis:"Painting|Sculpture"`,
		},
		{
			name:  "morelike without pages",
			topic: domain.Topic{ID: "empty", Kind: domain.TopicMoreLike},
			want:  "",
		},
		{
			name:  "classifier defaults to own id",
			topic: domain.Topic{ID: "biology", Kind: domain.TopicClassifier},
			want:  "articletopic:biology",
		},
		{
			name:  "classifier group",
			topic: domain.Topic{ID: "science", Kind: domain.TopicClassifier, ClassifierTopics: []string{"biology", "physics"}},
			want:  "articletopic:biology|physics",
		},
		{
			name:  "campaign",
			topic: domain.Topic{ID: "c", Kind: domain.TopicCampaign, SearchExpression: " growthtopic:climate "},
			want:  "growthtopic:climate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.topic.Predicate(); got != tt.want {
				t.Errorf("Predicate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskType_LinkRecommendationSettings(t *testing.T) {
	t.Parallel()

	defaults := domain.TaskType{ID: "link-recommendation"}.LinkRecommendationSettings()
	if !approxEqual(defaults.MinimumLinkScore, 0.6) {
		t.Errorf("default minimumLinkScore = %v, want 0.6", defaults.MinimumLinkScore)
	}
	if defaults.MinimumTimeSinceLastEdit != 24*time.Hour {
		t.Errorf("default minimumTimeSinceLastEdit = %v, want 24h", defaults.MinimumTimeSinceLastEdit)
	}
	if !defaults.PruneRedLinks {
		t.Error("red links should be pruned by default")
	}

	custom := domain.TaskType{Settings: map[string]any{
		"minimumLinkScore":         0.3,
		"maximumLinksPerTask":      float64(4),
		"minimumTimeSinceLastEdit": float64(60),
		"pruneRedLinks":            false,
		"underlinkedExponent":      "bad",
	}}.LinkRecommendationSettings()

	if !approxEqual(custom.MinimumLinkScore, 0.3) {
		t.Errorf("minimumLinkScore = %v, want 0.3", custom.MinimumLinkScore)
	}
	if custom.MaximumLinksPerTask != 4 {
		t.Errorf("maximumLinksPerTask = %d, want 4", custom.MaximumLinksPerTask)
	}
	if custom.MinimumTimeSinceLastEdit != time.Minute {
		t.Errorf("minimumTimeSinceLastEdit = %v, want 1m", custom.MinimumTimeSinceLastEdit)
	}
	if custom.PruneRedLinks {
		t.Error("pruneRedLinks = true, want false")
	}
	if !approxEqual(custom.UnderlinkedExponent, 4.0) {
		t.Errorf("underlinkedExponent = %v, want default 4", custom.UnderlinkedExponent)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinkRecommendation_WithLinksDoesNotMutate(t *testing.T) {
	t.Parallel()

	rec := &domain.LinkRecommendation{
		PageID: 1,
		Links:  []domain.LinkRecommendationLink{{Target: "A"}, {Target: "B"}},
	}
	pruned := rec.WithLinks(rec.Links[:1])

	if len(rec.Links) != 2 {
		t.Errorf("original links = %d, want 2", len(rec.Links))
	}
	if got := pruned.LinkTargets(); !slices.Equal(got, []string{"A"}) {
		t.Errorf("pruned targets = %v, want [A]", got)
	}
}

func TestEvalStatus(t *testing.T) {
	t.Parallel()

	if !domain.Good(&domain.LinkRecommendation{}).IsGood() {
		t.Error("Good() status should be good")
	}
	if domain.NotGood(domain.CauseRedirect, "").IsGood() {
		t.Error("NotGood() status should not be good")
	}
	if n := len(domain.AllCauses()); n != 8 {
		t.Errorf("AllCauses() has %d causes, want 8", n)
	}
}
