package linkrec

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

var (
	// ErrNoRecommendation means nothing is stored for the page's current revision.
	ErrNoRecommendation = errors.New("no link recommendation for the current revision")

	// ErrAllLinksPruned accompanies a recommendation whose every link was
	// removed. The returned recommendation is still usable as a record.
	ErrAllLinksPruned = errors.New("all links pruned from the recommendation")
)

// Pruning reasons.
const (
	PruneReasonExcluded = "excluded"
	PruneReasonRedLink  = "red_link"
)

// Provider returns the recommendation to serve for a page.
type Provider interface {
	Get(ctx context.Context, title string, taskType domain.TaskType) (*domain.LinkRecommendation, error)
}

// RevisionLookup resolves a title to its page and latest revision.
type RevisionLookup interface {
	CurrentRevision(ctx context.Context, title string) (pageID, revisionID int64, err error)
}

// RevisionReader reads stored recommendations by revision.
type RevisionReader interface {
	GetByRevID(ctx context.Context, revID int64) (*domain.LinkRecommendation, error)
}

// DBProvider serves the stored recommendation for the current revision.
type DBProvider struct {
	revisions RevisionLookup
	store     RevisionReader
}

// NewDBProvider creates a store-backed provider.
func NewDBProvider(revisions RevisionLookup, store RevisionReader) *DBProvider {
	return &DBProvider{revisions: revisions, store: store}
}

// Get implements Provider.
func (p *DBProvider) Get(ctx context.Context, title string, _ domain.TaskType) (*domain.LinkRecommendation, error) {
	pageID, revID, err := p.revisions.CurrentRevision(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolve current revision: %w", err)
	}

	rec, err := p.store.GetByRevID(ctx, revID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.PageID != pageID {
		return nil, fmt.Errorf("%w: %s", ErrNoRecommendation, domain.NormalizeTitle(title))
	}
	return rec, nil
}

// ExclusionSource lists link targets editors have already decided on.
type ExclusionSource interface {
	GetExcludedLinkIDs(ctx context.Context, pageID int64, limit int) ([]int64, error)
}

// TitleChecker reports which titles still have a page.
type TitleChecker interface {
	ExistingTitles(ctx context.Context, titles []string) (map[string]bool, error)
}

// PruningProvider removes links that should no longer be offered. It never
// modifies what the base provider returned.
type PruningProvider struct {
	base       Provider
	exclusions ExclusionSource
	titles     TitleChecker
	telemetry  *telemetry.Provider
	log        logger.Logger
}

// NewPruningProvider wraps base.
func NewPruningProvider(
	base Provider,
	exclusions ExclusionSource,
	titles TitleChecker,
	tp *telemetry.Provider,
	log logger.Logger,
) *PruningProvider {
	return &PruningProvider{base: base, exclusions: exclusions, titles: titles, telemetry: tp, log: log}
}

// Get implements Provider. When nothing is pruned the base result is
// returned as is. When everything is pruned the pruned copy is returned
// together with ErrAllLinksPruned.
func (p *PruningProvider) Get(ctx context.Context, title string, taskType domain.TaskType) (*domain.LinkRecommendation, error) {
	rec, err := p.base.Get(ctx, title, taskType)
	if err != nil {
		return nil, err
	}

	settings := taskType.LinkRecommendationSettings()

	kept := p.dropExcluded(ctx, rec, rec.Links)
	if settings.PruneRedLinks {
		kept = p.dropRedLinks(ctx, kept)
	}

	if len(kept) == len(rec.Links) {
		return rec, nil
	}

	pruned := rec.WithLinks(kept)
	if len(kept) == 0 {
		p.log.Warn("All links pruned from recommendation",
			logger.Title(rec.Title),
			logger.RevisionID(rec.RevisionID),
		)
		return pruned, ErrAllLinksPruned
	}
	return pruned, nil
}

func (p *PruningProvider) dropExcluded(
	ctx context.Context, rec *domain.LinkRecommendation, links []domain.LinkRecommendationLink,
) []domain.LinkRecommendationLink {
	ids, err := p.exclusions.GetExcludedLinkIDs(ctx, rec.PageID, maxExcludedLinks)
	if err != nil {
		p.log.Warn("Skipping exclusion pruning", logger.PageID(rec.PageID), logger.Error(err))
		return links
	}
	if len(ids) == 0 {
		return links
	}

	excluded := make(map[int64]bool, len(ids))
	for _, id := range ids {
		excluded[id] = true
	}

	kept := make([]domain.LinkRecommendationLink, 0, len(links))
	for _, l := range links {
		if !excluded[l.TargetPageID] {
			kept = append(kept, l)
		}
	}
	p.telemetry.RecordPruned(PruneReasonExcluded, len(links)-len(kept))
	return kept
}

func (p *PruningProvider) dropRedLinks(ctx context.Context, links []domain.LinkRecommendationLink) []domain.LinkRecommendationLink {
	if len(links) == 0 {
		return links
	}

	targets := make([]string, len(links))
	for i, l := range links {
		targets[i] = l.Target
	}

	existing, err := p.titles.ExistingTitles(ctx, targets)
	if err != nil {
		p.log.Warn("Skipping red link pruning", logger.Error(err))
		return links
	}

	kept := make([]domain.LinkRecommendationLink, 0, len(links))
	for _, l := range links {
		if existing[domain.TitleKey(l.Target)] {
			kept = append(kept, l)
		}
	}
	p.telemetry.RecordPruned(PruneReasonRedLink, len(links)-len(kept))
	return kept
}
