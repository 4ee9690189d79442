package linkrec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/linkrec"
)

type fakeTitles struct {
	pages map[string]domain.Page
	calls int
	err   error
}

func (f *fakeTitles) LookupTitles(_ context.Context, titles []string) (map[string]domain.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.Page)
	for _, title := range titles {
		key := domain.TitleKey(title)
		if p, ok := f.pages[key]; ok {
			out[key] = p
		}
	}
	return out, nil
}

func (f *fakeTitles) ExistingTitles(ctx context.Context, titles []string) (map[string]bool, error) {
	pages, err := f.LookupTitles(ctx, titles)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(pages))
	for key := range pages {
		out[key] = true
	}
	return out, nil
}

const nokiaHTML = `<p>Nokia is a company based in <a href="./Espoo" title="Espoo">Espoo</a>, Finland.
It made mobile phones and network equipment for Microsoft Mobile customers.</p>`

func nokiaPage() domain.Page {
	return domain.Page{ID: 1, Title: "Nokia", LatestRevisionID: 100, Length: 1000, HTML: nokiaHTML}
}

func linkTargets() *fakeTitles {
	return &fakeTitles{pages: map[string]domain.Page{
		"Nokia":             {ID: 1, Title: "Nokia", InboundLinks: 5000},
		"Espoo":             {ID: 2, Title: "Espoo", InboundLinks: 900},
		"Finland":           {ID: 3, Title: "Finland", InboundLinks: 1000},
		"Network_equipment": {ID: 4, Title: "Network equipment", InboundLinks: 180, Length: 4000},
		"Microsoft_Mobile":  {ID: 5, Title: "Microsoft Mobile", InboundLinks: 80},
		"Mobile_phones":     {ID: 6, Title: "Mobile phones", InboundLinks: 500, IsRedirect: true},
	}}
}

func generatorSettings() domain.LinkRecommendationSettings {
	s := domain.DefaultLinkRecommendationSettings()
	s.MinimumLinkScore = 0.5
	return s
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	g := linkrec.NewGenerator(linkTargets())

	got, err := g.Generate(t.Context(), nokiaPage(), generatorSettings(), nil)
	require.NoError(t, err)
	require.Len(t, got.Links, 2)

	first, second := got.Links[0], got.Links[1]
	assert.Equal(t, "Network equipment", first.Target)
	assert.Equal(t, "network equipment", first.Text)
	assert.Equal(t, int64(4), first.TargetPageID)
	assert.Equal(t, 4000, first.TargetLength)
	assert.InDelta(t, 0.675, first.Score, 1e-9)
	assert.Contains(t, first.ContextBefore, "mobile phones and")
	assert.Equal(t, 0, first.LinkIndex)

	assert.Equal(t, "Microsoft Mobile", second.Target)
	assert.InDelta(t, 0.6, second.Score, 1e-9)
	assert.Equal(t, 1, second.LinkIndex)
	assert.Less(t, first.Offset, second.Offset)

	assert.Positive(t, got.CandidateCount)
	assert.Contains(t, got.Diagnostics, "skipped self: 1")
	assert.Contains(t, got.Diagnostics, "skipped redirect: 1")
}

func TestGenerator_ExcludedTargets(t *testing.T) {
	t.Parallel()

	g := linkrec.NewGenerator(linkTargets())

	got, err := g.Generate(t.Context(), nokiaPage(), generatorSettings(), map[int64]bool{4: true})
	require.NoError(t, err)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "Microsoft Mobile", got.Links[0].Target)
}

func TestGenerator_MaximumLinksKeepsBestScores(t *testing.T) {
	t.Parallel()

	settings := generatorSettings()
	settings.MaximumLinksPerTask = 1

	got, err := linkrec.NewGenerator(linkTargets()).Generate(t.Context(), nokiaPage(), settings, nil)
	require.NoError(t, err)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "Network equipment", got.Links[0].Target)
}

func TestGenerator_LookupError(t *testing.T) {
	t.Parallel()

	g := linkrec.NewGenerator(&fakeTitles{err: errors.New("index down")})

	_, err := g.Generate(t.Context(), nokiaPage(), generatorSettings(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "look up candidate titles")
}

func TestGenerator_UnderlinkedScore(t *testing.T) {
	t.Parallel()

	page := nokiaPage()
	page.Length = 10

	got, err := linkrec.NewGenerator(linkTargets()).Generate(t.Context(), page, generatorSettings(), nil)
	require.NoError(t, err)
	assert.Zero(t, got.UnderlinkedScore, "pages under the minimum length are not underlinked")
}
