// Package linkrec evaluates candidate pages, generates and stores link
// recommendations, and serves them pruned against editor feedback.
package linkrec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/scoring"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

// maxExcludedLinks bounds the feedback history read per page.
const maxExcludedLinks = 500

// Store is the subset of the recommendation store the updater writes to.
type Store interface {
	Insert(ctx context.Context, rec *domain.LinkRecommendation) error
	GetByRevID(ctx context.Context, revID int64) (*domain.LinkRecommendation, error)
	GetExcludedLinkIDs(ctx context.Context, pageID int64, limit int) ([]int64, error)
}

// CandidateGenerator produces link candidates for a page.
type CandidateGenerator interface {
	Generate(
		ctx context.Context,
		page domain.Page,
		settings domain.LinkRecommendationSettings,
		excluded map[int64]bool,
	) (*Result, error)
}

// IndexMarker flags pages in the search index.
type IndexMarker interface {
	MarkRecommended(ctx context.Context, title string, underlinkedScore float64) error
}

// Updater decides whether a page gets a link recommendation and stores it.
type Updater struct {
	store     Store
	generator CandidateGenerator
	index     IndexMarker
	telemetry *telemetry.Provider
	log       logger.Logger
	version   string
	now       func() time.Time
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithTelemetry records evaluations and stored recommendations.
func WithTelemetry(tp *telemetry.Provider) UpdaterOption {
	return func(u *Updater) { u.telemetry = tp }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) UpdaterOption {
	return func(u *Updater) { u.now = now }
}

// WithApplicationVersion stamps stored metadata.
func WithApplicationVersion(v string) UpdaterOption {
	return func(u *Updater) { u.version = v }
}

// NewUpdater creates an updater.
func NewUpdater(store Store, generator CandidateGenerator, index IndexMarker, log logger.Logger, opts ...UpdaterOption) *Updater {
	u := &Updater{
		store:     store,
		generator: generator,
		index:     index,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ProcessCandidate evaluates page for taskType. A rejection is reported in
// the status; an error means the evaluation itself failed. With force set,
// an existing recommendation for the current revision is regenerated.
func (u *Updater) ProcessCandidate(
	ctx context.Context, taskType domain.TaskType, page domain.Page, force bool,
) (domain.EvalStatus, error) {
	started := u.now()

	status, err := u.evaluate(ctx, taskType, page, force)
	if err != nil {
		return domain.EvalStatus{}, err
	}
	if !status.IsGood() {
		u.reject(taskType, page, status)
		return status, nil
	}

	u.telemetry.RecordEvaluation(taskType.ID, "")
	u.telemetry.RecordStored(u.now().Sub(started))
	u.log.Info("Stored link recommendation",
		logger.Title(page.Title),
		logger.RevisionID(page.LatestRevisionID),
		logger.Int("links", len(status.Recommendation.Links)),
	)
	return status, nil
}

func (u *Updater) reject(taskType domain.TaskType, page domain.Page, status domain.EvalStatus) {
	u.telemetry.RecordEvaluation(taskType.ID, string(status.Cause))
	u.log.Debug("Candidate rejected",
		logger.Title(page.Title),
		logger.String("cause", string(status.Cause)),
		logger.String("detail", status.Detail),
	)
}

func (u *Updater) evaluate(
	ctx context.Context, taskType domain.TaskType, page domain.Page, force bool,
) (domain.EvalStatus, error) {
	settings := taskType.LinkRecommendationSettings()

	if status, rejected := u.checkEligibility(taskType, settings, page); rejected {
		return status, nil
	}

	if !force {
		stored, err := u.store.GetByRevID(ctx, page.LatestRevisionID)
		if err != nil {
			return domain.EvalStatus{}, fmt.Errorf("check stored recommendation: %w", err)
		}
		if stored != nil && stored.PageID == page.ID {
			if markErr := u.remark(ctx, page, settings); markErr != nil {
				return domain.EvalStatus{}, fmt.Errorf("mark page recommended: %w", markErr)
			}
			return domain.NotGood(domain.CauseAlreadyStored, fmt.Sprintf("revision %d", page.LatestRevisionID)), nil
		}
	}

	excludedIDs, err := u.store.GetExcludedLinkIDs(ctx, page.ID, maxExcludedLinks)
	if err != nil {
		return domain.EvalStatus{}, fmt.Errorf("load excluded links: %w", err)
	}
	excluded := make(map[int64]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}

	result, err := u.generator.Generate(ctx, page, settings, excluded)
	if err != nil {
		return domain.EvalStatus{}, fmt.Errorf("generate link candidates: %w", err)
	}
	if len(result.Links) < settings.MinimumLinksPerTask {
		return domain.NotGood(domain.CauseNotEnoughLinks,
			fmt.Sprintf("%d of %d required", len(result.Links), settings.MinimumLinksPerTask)), nil
	}

	rec := &domain.LinkRecommendation{
		Title:      domain.NormalizeTitle(page.Title),
		PageID:     page.ID,
		RevisionID: page.LatestRevisionID,
		Links:      result.Links,
		Metadata: domain.LinkRecommendationMetadata{
			ApplicationVersion: u.version,
			CandidateCount:     result.CandidateCount,
			Diagnostics:        result.Diagnostics,
			GeneratedAt:        u.now().UTC(),
		},
	}

	if insertErr := u.store.Insert(ctx, rec); insertErr != nil {
		return domain.EvalStatus{}, fmt.Errorf("store link recommendation: %w", insertErr)
	}

	if markErr := u.index.MarkRecommended(ctx, page.Title, result.UnderlinkedScore); markErr != nil {
		return domain.EvalStatus{}, fmt.Errorf("mark page recommended: %w", markErr)
	}

	return domain.Good(rec), nil
}

// remark sets the index flag for a page whose current revision already has
// a stored recommendation. A mark that failed after the store is repaired
// here.
func (u *Updater) remark(ctx context.Context, page domain.Page, settings domain.LinkRecommendationSettings) error {
	text, err := extractText(page.HTML)
	if err != nil {
		return err
	}
	score := scoring.Underlinked(
		page.Length, settings.UnderlinkedMinLength, text.LinkTokens, text.Words, settings.UnderlinkedExponent)
	return u.index.MarkRecommended(ctx, page.Title, score)
}

// checkEligibility applies the cheap page checks. The first three run in a
// fixed order so the reported cause is stable.
func (u *Updater) checkEligibility(
	taskType domain.TaskType, settings domain.LinkRecommendationSettings, page domain.Page,
) (domain.EvalStatus, bool) {
	if age := u.now().Sub(page.LastEditedAt); age < settings.MinimumTimeSinceLastEdit {
		return domain.NotGood(domain.CauseMinimumTimeDidNotPass, "last edited "+age.Round(time.Second).String()+" ago"), true
	}
	if name, ok := firstShared(page.Templates, taskType.ExcludedTemplates, "Template:"); ok {
		return domain.NotGood(domain.CauseExcludedTemplate, name), true
	}
	if name, ok := firstShared(page.Categories, taskType.ExcludedCategories, "Category:"); ok {
		return domain.NotGood(domain.CauseExcludedCategory, name), true
	}

	switch {
	case page.Namespace != domain.MainNamespace:
		return domain.NotGood(domain.CauseWrongNamespace, fmt.Sprintf("namespace %d", page.Namespace)), true
	case page.IsRedirect:
		return domain.NotGood(domain.CauseRedirect, ""), true
	case page.IsDisambiguation:
		return domain.NotGood(domain.CauseDisambiguation, ""), true
	}
	return domain.EvalStatus{}, false
}

// firstShared returns the first name in have that also appears in excluded,
// comparing titles without the namespace prefix.
func firstShared(have, excluded []string, prefix string) (string, bool) {
	if len(have) == 0 || len(excluded) == 0 {
		return "", false
	}
	set := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		set[bareTitle(name, prefix)] = true
	}
	for _, name := range have {
		if set[bareTitle(name, prefix)] {
			return name, true
		}
	}
	return "", false
}

func bareTitle(name, prefix string) string {
	name = domain.NormalizeTitle(name)
	if rest, ok := strings.CutPrefix(name, prefix); ok {
		return domain.NormalizeTitle(rest)
	}
	return name
}
