package ingress

import (
	"context"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

// referencingLimit caps how many recommendations pointing at a deleted page
// are queued for regeneration per event.
const referencingLimit = 500

// Invalidation kinds recorded in metrics.
const (
	InvalidationEdit     = "edit"
	InvalidationDelete   = "delete"
	InvalidationRequeued = "requeued"
)

// RecommendationStore is the part of the recommendation store the
// invalidator needs.
type RecommendationStore interface {
	GetByPageID(ctx context.Context, pageID int64) (*domain.LinkRecommendation, error)
	DeleteByPageIDs(ctx context.Context, pageIDs []int64) (int64, error)
	DeleteByLinkTarget(ctx context.Context, title string) (bool, error)
	ListReferencingTarget(ctx context.Context, target string, limit int) ([]*domain.LinkRecommendation, error)
}

// RefreshQueue receives pages whose recommendations should be regenerated.
type RefreshQueue interface {
	Enqueue(ctx context.Context, titles ...string) error
}

// RecommendationInvalidator removes recommendations made stale by a page
// change. Failures are logged and dropped; a missed deletion is caught by the
// revision check at read time.
type RecommendationInvalidator struct {
	store     RecommendationStore
	queue     RefreshQueue
	telemetry *telemetry.Provider
	log       logger.Logger
}

// NewRecommendationInvalidator creates the subscriber. queue may be nil.
func NewRecommendationInvalidator(
	store RecommendationStore, queue RefreshQueue, tp *telemetry.Provider, log logger.Logger,
) *RecommendationInvalidator {
	return &RecommendationInvalidator{store: store, queue: queue, telemetry: tp, log: log}
}

// Name implements Subscriber.
func (r *RecommendationInvalidator) Name() string { return "recommendation_invalidator" }

// OnPageChange implements Subscriber.
func (r *RecommendationInvalidator) OnPageChange(ctx context.Context, change PageChange) {
	switch change.Kind {
	case ChangeEdited:
		r.onEdit(ctx, change)
	case ChangeDeleted:
		r.onDelete(ctx, change)
	}
}

func (r *RecommendationInvalidator) onEdit(ctx context.Context, change PageChange) {
	stored, err := r.store.GetByPageID(ctx, change.PageID)
	if err != nil {
		r.log.Warn("Failed to read stored recommendation", logger.PageID(change.PageID), logger.Error(err))
		return
	}
	if stored == nil {
		return
	}
	if isCurrent(stored, change) {
		return
	}

	deleted, err := r.store.DeleteByPageIDs(ctx, []int64{change.PageID})
	if err != nil {
		r.log.Warn("Failed to delete stale recommendation", logger.PageID(change.PageID), logger.Error(err))
		return
	}

	r.telemetry.RecordInvalidation(InvalidationEdit, deleted)
	r.log.Debug("Deleted stale recommendation",
		logger.PageID(change.PageID),
		logger.RevisionID(stored.RevisionID),
		logger.Int64("new_revision_id", change.RevisionID),
	)
}

func (r *RecommendationInvalidator) onDelete(ctx context.Context, change PageChange) {
	deleted, err := r.store.DeleteByLinkTarget(ctx, change.Title)
	if err != nil {
		r.log.Warn("Failed to delete recommendation", logger.Title(change.Title), logger.Error(err))
	} else if deleted {
		r.telemetry.RecordInvalidation(InvalidationDelete, 1)
	}

	if r.queue == nil {
		return
	}

	referencing, err := r.store.ListReferencingTarget(ctx, change.Title, referencingLimit)
	if err != nil {
		r.log.Warn("Failed to list referencing recommendations", logger.Title(change.Title), logger.Error(err))
		return
	}
	if len(referencing) == 0 {
		return
	}

	titles := make([]string, 0, len(referencing))
	for _, rec := range referencing {
		titles = append(titles, rec.Title)
	}
	if err := r.queue.Enqueue(ctx, titles...); err != nil {
		r.log.Warn("Failed to queue pages for refresh", logger.Title(change.Title), logger.Error(err))
		return
	}

	r.telemetry.RecordInvalidation(InvalidationRequeued, int64(len(titles)))
	r.log.Info("Queued pages linking to deleted page",
		logger.Title(change.Title),
		logger.Int("pages", len(titles)),
	)
}

// isCurrent reports whether stored was computed for the edited revision.
func isCurrent(stored *domain.LinkRecommendation, change PageChange) bool {
	return stored != nil && change.RevisionID != 0 && stored.RevisionID == change.RevisionID
}

// StoredRevisionReader reads the stored recommendation of a page.
type StoredRevisionReader interface {
	GetByPageID(ctx context.Context, pageID int64) (*domain.LinkRecommendation, error)
}

// FlagClearer is the page index operation IndexFlagClearer needs.
type FlagClearer interface {
	ClearRecommended(ctx context.Context, title string) error
}

// IndexFlagClearer removes the link recommendation flag from the page index
// when a page is edited to a new revision or deleted. An edit whose revision
// still has a stored recommendation keeps the flag.
type IndexFlagClearer struct {
	index  FlagClearer
	stored StoredRevisionReader
	log    logger.Logger
}

// NewIndexFlagClearer creates the subscriber. stored may be nil, in which
// case every edit clears the flag.
func NewIndexFlagClearer(index FlagClearer, stored StoredRevisionReader, log logger.Logger) *IndexFlagClearer {
	return &IndexFlagClearer{index: index, stored: stored, log: log}
}

// Name implements Subscriber.
func (c *IndexFlagClearer) Name() string { return "index_flag_clearer" }

// OnPageChange implements Subscriber.
func (c *IndexFlagClearer) OnPageChange(ctx context.Context, change PageChange) {
	if change.Title == "" {
		return
	}
	if change.Kind == ChangeEdited && c.keepsRecommendation(ctx, change) {
		return
	}
	if err := c.index.ClearRecommended(ctx, change.Title); err != nil {
		c.log.Warn("Failed to clear recommendation flag", logger.Title(change.Title), logger.Error(err))
	}
}

func (c *IndexFlagClearer) keepsRecommendation(ctx context.Context, change PageChange) bool {
	if c.stored == nil || change.PageID == 0 {
		return false
	}
	stored, err := c.stored.GetByPageID(ctx, change.PageID)
	if err != nil {
		c.log.Warn("Failed to read stored recommendation", logger.PageID(change.PageID), logger.Error(err))
		return false
	}
	return isCurrent(stored, change)
}
