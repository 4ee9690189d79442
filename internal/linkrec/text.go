package linkrec

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// nonProseSelector matches elements whose text is never a link anchor.
const nonProseSelector = "script, style, table, figure, sup, .infobox, .navbox, .reflist, .mw-references-wrap"

// pageText is the prose of a page with existing links cut out.
type pageText struct {
	// Prose has every existing anchor replaced by a line break, so phrases
	// never span a link.
	Prose         string
	Words         int
	LinkTokens    int
	LinkedTargets map[string]bool
}

func extractText(html string) (pageText, error) {
	out := pageText{LinkedTargets: make(map[string]bool)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out, fmt.Errorf("parse page html: %w", err)
	}

	doc.Find(nonProseSelector).Remove()

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if target := anchorTarget(s); target != "" {
			out.LinkedTargets[domain.TitleKey(target)] = true
		}
		out.LinkTokens += len(strings.Fields(s.Text()))
		s.ReplaceWithHtml("\n")
	})

	out.Prose = collapseSpace(doc.Find("body").Text())
	out.Words = len(strings.Fields(out.Prose)) + out.LinkTokens
	return out, nil
}

// collapseSpace squeezes whitespace runs to one space, or to one line break
// when the run holds a line break.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pending, newline := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = true
			newline = newline || r == '\n'
			continue
		}
		if pending && b.Len() > 0 {
			if newline {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		pending, newline = false, false
		b.WriteRune(r)
	}
	return b.String()
}

// anchorTarget returns the wiki title an anchor points to, or "" for
// external and fragment links.
func anchorTarget(s *goquery.Selection) string {
	href, _ := s.Attr("href")
	if strings.Contains(href, "://") || strings.HasPrefix(href, "#") {
		return ""
	}
	if title, ok := s.Attr("title"); ok && title != "" {
		return title
	}

	href = strings.TrimPrefix(href, "./")
	href = strings.TrimPrefix(href, "/wiki/")
	href, _, _ = strings.Cut(href, "#")
	if href == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return href
}

// stopwords never start or end a candidate phrase.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "she": true, "that": true, "the": true, "their": true,
	"this": true, "to": true, "was": true, "were": true, "which": true,
	"with": true, "also": true, "but": true, "not": true, "they": true,
}

const minSingleWordRunes = 4

// isPhraseBreak reports runes that end a phrase.
func isPhraseBreak(r rune) bool {
	if r == '\n' || r == '\r' {
		return true
	}
	if r == '-' || r == '\'' || r == '’' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// candidatePhrases returns distinct 1..maxWords word phrases from prose in
// order of first appearance, capped at limit.
func candidatePhrases(prose string, maxWords, limit int) []string {
	seen := make(map[string]bool)
	var out []string

	for _, segment := range strings.FieldsFunc(prose, isPhraseBreak) {
		words := strings.Fields(segment)
		for i := range words {
			for n := 1; n <= maxWords && i+n <= len(words); n++ {
				if len(out) >= limit {
					return out
				}
				phrase := words[i : i+n]
				if !usablePhrase(phrase) {
					continue
				}
				joined := strings.Join(phrase, " ")
				key := domain.TitleKey(joined)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, joined)
			}
		}
	}
	return out
}

func usablePhrase(words []string) bool {
	first := strings.ToLower(words[0])
	last := strings.ToLower(words[len(words)-1])
	if stopwords[first] || stopwords[last] {
		return false
	}
	if len(words) == 1 {
		if utf8.RuneCountInString(first) < minSingleWordRunes {
			return false
		}
		if strings.IndexFunc(first, unicode.IsLetter) < 0 {
			return false
		}
	}
	return true
}

// folder maps runes one-to-one onto a case and accent insensitive form so
// offsets in folded text are offsets in the original.
type folder struct {
	t transform.Transformer
}

func newFolder() *folder {
	return &folder{t: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)}
}

func (f *folder) foldRune(r rune) rune {
	if r < utf8.RuneSelf {
		return unicode.ToLower(r)
	}
	s, _, err := transform.String(f.t, string(r))
	if err != nil || s == "" {
		return unicode.ToLower(r)
	}
	first, _ := utf8.DecodeRuneInString(s)
	return unicode.ToLower(first)
}

func (f *folder) fold(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = f.foldRune(r)
	}
	return rs
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// occurrences returns rune offsets of needle in hay that sit on word
// boundaries.
func occurrences(hay, needle []rune) []int {
	var out []int
	if len(needle) == 0 {
		return out
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if hay[i] != needle[0] || !runesEqual(hay[i:i+len(needle)], needle) {
			continue
		}
		if i > 0 && isWordRune(hay[i-1]) {
			continue
		}
		if end := i + len(needle); end < len(hay) && isWordRune(hay[end]) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// contextWindow returns up to n runes either side of [start, end).
func contextWindow(text []rune, start, end, n int) (before, after string) {
	from := max(0, start-n)
	to := min(len(text), end+n)
	return strings.TrimLeft(string(text[from:start]), " \n"), strings.TrimRight(string(text[end:to]), " \n")
}
