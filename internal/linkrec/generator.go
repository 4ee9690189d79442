package linkrec

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/scoring"
)

const (
	defaultMaxPhraseWords = 3
	defaultMaxCandidates  = 600
	lookupBatchSize       = 100
	contextRunes          = 30
)

// TitleLookup resolves titles to page summaries keyed by title key.
type TitleLookup interface {
	LookupTitles(ctx context.Context, titles []string) (map[string]domain.Page, error)
}

// Generator finds phrases in a page that could link to existing pages.
type Generator struct {
	titles         TitleLookup
	maxPhraseWords int
	maxCandidates  int
}

// NewGenerator creates a generator backed by titles.
func NewGenerator(titles TitleLookup) *Generator {
	return &Generator{
		titles:         titles,
		maxPhraseWords: defaultMaxPhraseWords,
		maxCandidates:  defaultMaxCandidates,
	}
}

// Result is the output of one generation run.
type Result struct {
	Links            []domain.LinkRecommendationLink
	CandidateCount   int
	UnderlinkedScore float64
	Diagnostics      []string
}

type match struct {
	text   string
	target domain.Page
	words  int
	offset int
	end    int
	inst   int
	score  float64
	before string
	after  string
}

// Generate scores link candidates for page. Targets in excluded are skipped.
func (g *Generator) Generate(
	ctx context.Context,
	page domain.Page,
	settings domain.LinkRecommendationSettings,
	excluded map[int64]bool,
) (*Result, error) {
	text, err := extractText(page.HTML)
	if err != nil {
		return nil, err
	}

	result := &Result{
		UnderlinkedScore: scoring.Underlinked(
			page.Length, settings.UnderlinkedMinLength, text.LinkTokens, text.Words, settings.UnderlinkedExponent),
	}

	phrases := candidatePhrases(text.Prose, g.maxPhraseWords, g.maxCandidates)
	result.CandidateCount = len(phrases)
	if len(phrases) == 0 {
		return result, nil
	}

	targets, err := g.lookup(ctx, phrases)
	if err != nil {
		return nil, err
	}

	usable := make([]string, 0, len(targets))
	skipped := make(map[string]int)
	for _, phrase := range phrases {
		target, ok := targets[domain.TitleKey(phrase)]
		if !ok {
			continue
		}
		if reason := unusableTarget(page, target, text.LinkedTargets, excluded); reason != "" {
			skipped[reason]++
			continue
		}
		usable = append(usable, phrase)
	}
	for _, reason := range slices.Sorted(maps.Keys(skipped)) {
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("skipped %s: %d", reason, skipped[reason]))
	}
	if len(usable) == 0 {
		return result, nil
	}

	matches := locate(text.Prose, usable, targets)
	result.Links = selectLinks(matches, settings)
	return result, nil
}

func (g *Generator) lookup(ctx context.Context, phrases []string) (map[string]domain.Page, error) {
	found := make(map[string]domain.Page)
	for batch := range slices.Chunk(phrases, lookupBatchSize) {
		pages, err := g.titles.LookupTitles(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("look up candidate titles: %w", err)
		}
		for key, p := range pages {
			found[key] = p
		}
	}
	return found, nil
}

func unusableTarget(page, target domain.Page, linked map[string]bool, excluded map[int64]bool) string {
	switch {
	case target.ID == page.ID:
		return "self"
	case linked[domain.TitleKey(target.Title)]:
		return "already_linked"
	case excluded[target.ID]:
		return "excluded"
	case target.Namespace != domain.MainNamespace:
		return "namespace"
	case target.IsRedirect:
		return "redirect"
	case target.IsDisambiguation:
		return "disambiguation"
	}
	return ""
}

// locate finds the first word-bounded occurrence of each phrase in prose.
func locate(prose string, phrases []string, targets map[string]domain.Page) []match {
	f := newFolder()
	original := []rune(prose)
	folded := f.fold(prose)

	patterns := make([]string, len(phrases))
	for i, p := range phrases {
		patterns[i] = string(f.fold(p))
	}

	matcher := ahocorasick.NewStringMatcher(patterns)
	hits := matcher.Match([]byte(string(folded)))

	matches := make([]match, 0, len(hits))
	for _, idx := range hits {
		if idx >= len(phrases) {
			continue
		}
		needle := []rune(patterns[idx])
		offsets := occurrences(folded, needle)
		if len(offsets) == 0 {
			continue
		}

		start := offsets[0]
		end := start + len(needle)
		words := len(strings.Fields(phrases[idx]))
		target := targets[domain.TitleKey(phrases[idx])]
		before, after := contextWindow(original, start, end, contextRunes)

		matches = append(matches, match{
			text:   string(original[start:end]),
			target: target,
			words:  words,
			offset: start,
			end:    end,
			inst:   instanceOf(folded, needle, start),
			score:  scoring.LinkScore(target.InboundLinks, words),
			before: before,
			after:  after,
		})
	}

	return matches
}

// instanceOf counts plain occurrences of needle before offset, which is how
// an editor counts matches when searching the rendered page.
func instanceOf(hay, needle []rune, offset int) int {
	n := 0
	for i := 0; i+len(needle) <= offset; i++ {
		if runesEqual(hay[i:i+len(needle)], needle) {
			n++
		}
	}
	return n
}

// selectLinks keeps non-overlapping matches, preferring longer phrases,
// applies the score floor and the per-task cap, and orders the result by
// position.
func selectLinks(matches []match, settings domain.LinkRecommendationSettings) []domain.LinkRecommendationLink {
	slices.SortFunc(matches, func(a, b match) int {
		return cmp.Or(
			cmp.Compare(b.words, a.words),
			cmp.Compare(b.score, a.score),
			cmp.Compare(a.offset, b.offset),
		)
	})

	var kept []match
	for _, m := range matches {
		if m.score < settings.MinimumLinkScore {
			continue
		}
		if overlapsAny(kept, m) || targetTaken(kept, m) {
			continue
		}
		kept = append(kept, m)
	}

	slices.SortFunc(kept, func(a, b match) int {
		return cmp.Or(cmp.Compare(b.score, a.score), cmp.Compare(a.offset, b.offset))
	})
	if settings.MaximumLinksPerTask > 0 && len(kept) > settings.MaximumLinksPerTask {
		kept = kept[:settings.MaximumLinksPerTask]
	}
	slices.SortFunc(kept, func(a, b match) int { return cmp.Compare(a.offset, b.offset) })

	return toLinks(kept)
}

func overlapsAny(kept []match, m match) bool {
	for _, k := range kept {
		if m.offset < k.end && k.offset < m.end {
			return true
		}
	}
	return false
}

func targetTaken(kept []match, m match) bool {
	for _, k := range kept {
		if k.target.ID == m.target.ID {
			return true
		}
	}
	return false
}

func toLinks(kept []match) []domain.LinkRecommendationLink {
	links := make([]domain.LinkRecommendationLink, len(kept))
	for i, m := range kept {
		links[i] = domain.LinkRecommendationLink{
			Text:               m.text,
			Target:             domain.NormalizeTitle(m.target.Title),
			TargetPageID:       m.target.ID,
			TargetInboundLinks: m.target.InboundLinks,
			TargetLength:       m.target.Length,
			Score:              m.score,
			ContextBefore:      m.before,
			ContextAfter:       m.after,
			Instance:           m.inst,
			Offset:             m.offset,
			LinkIndex:          i,
		}
	}
	return links
}
