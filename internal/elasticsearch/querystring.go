package elasticsearch

import (
	"strings"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// keywordFields maps search keywords to page index fields.
var keywordFields = map[string]string{
	"hastemplate":       "templates",
	"incategory":        "categories",
	"articletopic":      "article_topics",
	"hasrecommendation": "recommendations",
}

const moreLikeThisKeyword = "morelikethis"

// QueryTranslator converts the keyword query syntax into bool query DSL.
type QueryTranslator struct {
	index string
}

// NewQueryTranslator returns a translator whose morelikethis clauses refer
// to documents in index.
func NewQueryTranslator(index string) *QueryTranslator {
	return &QueryTranslator{index: index}
}

// Translate builds a bool query. Keyword clauses become terms filters, a
// leading "-" negates a clause, and the remaining words become a
// simple_query_string. Results are always restricted to non-redirect
// articles.
func (t *QueryTranslator) Translate(query string) map[string]any {
	must := []any{}
	mustNot := []any{}
	filter := []any{
		map[string]any{"term": map[string]any{"namespace": domain.MainNamespace}},
		map[string]any{"term": map[string]any{"is_redirect": false}},
	}
	var freeText []string

	for _, tok := range tokenize(query) {
		negated := strings.HasPrefix(tok, "-")
		body := strings.TrimPrefix(tok, "-")

		keyword, value, isKeyword := strings.Cut(body, ":")
		keyword = strings.ToLower(keyword)
		value = strings.Trim(value, `"`)

		var clause map[string]any
		switch {
		case isKeyword && keyword == moreLikeThisKeyword:
			clause = t.moreLikeThis(value)
		case isKeyword && keywordFields[keyword] != "":
			clause = map[string]any{"terms": map[string]any{keywordFields[keyword]: splitValues(value)}}
		default:
			freeText = append(freeText, tok)
			continue
		}

		switch {
		case negated:
			mustNot = append(mustNot, clause)
		case keyword == moreLikeThisKeyword:
			must = append(must, clause)
		default:
			filter = append(filter, clause)
		}
	}

	if len(freeText) > 0 {
		must = append(must, map[string]any{
			"simple_query_string": map[string]any{
				"query":            strings.Join(freeText, " "),
				"fields":           []string{"title^3", "text"},
				"default_operator": "and",
			},
		})
	}

	boolQuery := map[string]any{"filter": filter}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]any{"bool": boolQuery}
}

func (t *QueryTranslator) moreLikeThis(value string) map[string]any {
	titles := splitValues(value)
	like := make([]any, 0, len(titles))
	for _, title := range titles {
		like = append(like, map[string]any{"_index": t.index, "_id": domain.TitleKey(title)})
	}
	return map[string]any{
		"more_like_this": map[string]any{
			"fields":          []string{"title", "text"},
			"like":            like,
			"min_term_freq":   1,
			"max_query_terms": 25,
		},
	}
}

func splitValues(value string) []string {
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tokenize splits on whitespace outside double quotes.
func tokenize(query string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range query {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}
