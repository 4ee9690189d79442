package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// ErrPageNotFound is returned when no document exists for a title.
var ErrPageNotFound = errors.New("page not found")

// RecommendationLink is the hasrecommendation value for link suggestions.
const RecommendationLink = "link"

// summaryFields are the fields fetched for batched title lookups.
var summaryFields = []string{
	"page_id", "title", "namespace", "revision_id", "is_redirect",
	"is_disambiguation", "length", "inbound_links",
}

// pageDocument is the page index document.
type pageDocument struct {
	PageID           int64              `json:"page_id"`
	Title            string             `json:"title"`
	Namespace        int                `json:"namespace"`
	RevisionID       int64              `json:"revision_id"`
	LastEditedAt     time.Time          `json:"last_edited_at"`
	IsRedirect       bool               `json:"is_redirect"`
	IsDisambiguation bool               `json:"is_disambiguation"`
	Templates        []string           `json:"templates"`
	Categories       []string           `json:"categories"`
	Length           int                `json:"length"`
	HTML             string             `json:"html"`
	OutgoingLinks    []string           `json:"outgoing_links"`
	ArticleTopics    []string           `json:"article_topics"`
	TopicScores      map[string]float64 `json:"topic_scores"`
	InboundLinks     int                `json:"inbound_links"`
	Recommendations  []string           `json:"recommendations"`
	UnderlinkedScore float64            `json:"underlinked_score"`
}

func (d *pageDocument) toPage() domain.Page {
	return domain.Page{
		ID:               d.PageID,
		Title:            d.Title,
		Namespace:        d.Namespace,
		LatestRevisionID: d.RevisionID,
		LastEditedAt:     d.LastEditedAt,
		IsRedirect:       d.IsRedirect,
		IsDisambiguation: d.IsDisambiguation,
		Templates:        d.Templates,
		Categories:       d.Categories,
		Length:           d.Length,
		HTML:             d.HTML,
		OutgoingLinks:    d.OutgoingLinks,
		Topics:           d.TopicScores,
		InboundLinks:     d.InboundLinks,
	}
}

// SearchRequest is one query against the page index.
type SearchRequest struct {
	QueryString string
	Sort        string
	From        int
	Size        int
}

// Hit is one matching page.
type Hit struct {
	PageID      int64
	Title       string
	Score       float64
	TopicScores map[string]float64
}

// SearchResult holds hits and the backend's total match count.
type SearchResult struct {
	Total int
	Hits  []Hit
	// Query is the DSL that was sent.
	Query map[string]any
}

// PageIndex reads and updates pages in the page index. Document IDs are
// title keys.
type PageIndex struct {
	client     *es.Client
	index      string
	translator *QueryTranslator
}

// NewPageIndex creates a PageIndex over index.
func NewPageIndex(client *es.Client, index string) *PageIndex {
	return &PageIndex{client: client, index: index, translator: NewQueryTranslator(index)}
}

// Ping checks the cluster.
func (p *PageIndex) Ping(ctx context.Context) error {
	return Ping(ctx, p.client)
}

// Search runs a keyword query.
func (p *PageIndex) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	query := p.translator.Translate(req.QueryString)
	body := map[string]any{
		"query":            query,
		"from":             req.From,
		"size":             req.Size,
		"track_total_hits": true,
		"_source":          []string{"page_id", "title", "topic_scores"},
	}
	if req.Sort != "" {
		body["sort"] = []any{map[string]any{req.Sort: "desc"}, "_score"}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(bytes.NewReader(buf)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("search returned error [%d]: %s", res.StatusCode, readBody(res.Body))
	}

	var decoded struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64      `json:"_score"`
				Source pageDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("decode search response: %w", decodeErr)
	}

	result := &SearchResult{Total: decoded.Hits.Total.Value, Query: query}
	for _, h := range decoded.Hits.Hits {
		result.Hits = append(result.Hits, Hit{
			PageID:      h.Source.PageID,
			Title:       h.Source.Title,
			Score:       h.Score,
			TopicScores: h.Source.TopicScores,
		})
	}
	return result, nil
}

// GetPage fetches a full page snapshot by title.
func (p *PageIndex) GetPage(ctx context.Context, title string) (*domain.Page, error) {
	res, err := p.client.Get(p.index, domain.TitleKey(title), p.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get page request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, title)
	}
	if res.IsError() {
		return nil, fmt.Errorf("get page returned error [%d]: %s", res.StatusCode, readBody(res.Body))
	}

	var decoded struct {
		Source pageDocument `json:"_source"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("decode page: %w", decodeErr)
	}

	page := decoded.Source.toPage()
	return &page, nil
}

// CurrentRevision returns the page ID and latest revision for a title.
func (p *PageIndex) CurrentRevision(ctx context.Context, title string) (pageID, revisionID int64, err error) {
	pages, err := p.LookupTitles(ctx, []string{title})
	if err != nil {
		return 0, 0, err
	}
	page, ok := pages[domain.TitleKey(title)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrPageNotFound, title)
	}
	return page.ID, page.LatestRevisionID, nil
}

// LookupTitles fetches summaries for titles in one mget request. The result
// is keyed by title key and omits titles with no page.
func (p *PageIndex) LookupTitles(ctx context.Context, titles []string) (map[string]domain.Page, error) {
	out := make(map[string]domain.Page, len(titles))
	if len(titles) == 0 {
		return out, nil
	}

	docs := make([]map[string]any, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		key := domain.TitleKey(title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		docs = append(docs, map[string]any{"_id": key, "_source": summaryFields})
	}

	buf, err := json.Marshal(map[string]any{"docs": docs})
	if err != nil {
		return nil, fmt.Errorf("encode mget body: %w", err)
	}

	res, err := p.client.Mget(
		bytes.NewReader(buf),
		p.client.Mget.WithContext(ctx),
		p.client.Mget.WithIndex(p.index),
	)
	if err != nil {
		return nil, fmt.Errorf("mget request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("mget returned error [%d]: %s", res.StatusCode, readBody(res.Body))
	}

	var decoded struct {
		Docs []struct {
			ID     string       `json:"_id"`
			Found  bool         `json:"found"`
			Source pageDocument `json:"_source"`
		} `json:"docs"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("decode mget response: %w", decodeErr)
	}

	for _, d := range decoded.Docs {
		if d.Found {
			out[d.ID] = d.Source.toPage()
		}
	}
	return out, nil
}

// ExistingTitles reports which titles have a page, keyed by title key.
func (p *PageIndex) ExistingTitles(ctx context.Context, titles []string) (map[string]bool, error) {
	pages, err := p.LookupTitles(ctx, titles)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(pages))
	for key := range pages {
		out[key] = true
	}
	return out, nil
}

const markScript = `if (ctx._source.recommendations == null) { ctx._source.recommendations = []; }
if (!ctx._source.recommendations.contains(params.kind)) { ctx._source.recommendations.add(params.kind); }
ctx._source.underlinked_score = params.score;`

const clearScript = `if (ctx._source.recommendations != null) { ctx._source.recommendations.removeIf(r -> r == params.kind); }`

// MarkRecommended flags the page as having a link recommendation and stores
// its underlinked score.
func (p *PageIndex) MarkRecommended(ctx context.Context, title string, underlinkedScore float64) error {
	return p.update(ctx, title, markScript, map[string]any{"kind": RecommendationLink, "score": underlinkedScore})
}

// ClearRecommended removes the link recommendation flag.
func (p *PageIndex) ClearRecommended(ctx context.Context, title string) error {
	return p.update(ctx, title, clearScript, map[string]any{"kind": RecommendationLink})
}

func (p *PageIndex) update(ctx context.Context, title, script string, params map[string]any) error {
	buf, err := json.Marshal(map[string]any{
		"script": map[string]any{"source": script, "lang": "painless", "params": params},
	})
	if err != nil {
		return fmt.Errorf("encode update body: %w", err)
	}

	res, err := p.client.Update(p.index, domain.TitleKey(title), bytes.NewReader(buf), p.client.Update.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("update request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrPageNotFound, title)
	}
	if res.IsError() {
		return fmt.Errorf("update returned error [%d]: %s", res.StatusCode, readBody(res.Body))
	}
	return nil
}
