package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

const recommendationColumns = `page_id, revision_id, title, links, metadata`

// RevisionLookup resolves a title to its page and latest revision.
type RevisionLookup interface {
	CurrentRevision(ctx context.Context, title string) (pageID, revisionID int64, err error)
}

// LinkRecommendationRepository stores at most one recommendation per page.
type LinkRecommendationRepository struct {
	db        *sqlx.DB
	revisions RevisionLookup
}

// NewLinkRecommendationRepository creates a repository. revisions may be nil
// when GetByLinkTarget is not used.
func NewLinkRecommendationRepository(db *sqlx.DB, revisions RevisionLookup) *LinkRecommendationRepository {
	return &LinkRecommendationRepository{db: db, revisions: revisions}
}

type recommendationRow struct {
	PageID     int64  `db:"page_id"`
	RevisionID int64  `db:"revision_id"`
	Title      string `db:"title"`
	Links      []byte `db:"links"`
	Metadata   []byte `db:"metadata"`
}

func (r *recommendationRow) toDomain() (*domain.LinkRecommendation, error) {
	rec := &domain.LinkRecommendation{
		PageID:     r.PageID,
		RevisionID: r.RevisionID,
		Title:      r.Title,
	}
	if err := json.Unmarshal(r.Links, &rec.Links); err != nil {
		return nil, fmt.Errorf("decode links for page %d: %w", r.PageID, err)
	}
	if err := json.Unmarshal(r.Metadata, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for page %d: %w", r.PageID, err)
	}
	return rec, nil
}

// Insert stores rec, replacing any recommendation for the same page.
func (r *LinkRecommendationRepository) Insert(ctx context.Context, rec *domain.LinkRecommendation) error {
	links, err := json.Marshal(rec.Links)
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO link_recommendations (page_id, revision_id, title, links, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (page_id) DO UPDATE SET
			revision_id = EXCLUDED.revision_id,
			title = EXCLUDED.title,
			links = EXCLUDED.links,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	if _, execErr := r.db.ExecContext(ctx, query,
		rec.PageID, rec.RevisionID, domain.NormalizeTitle(rec.Title), string(links), string(metadata),
	); execErr != nil {
		return fmt.Errorf("insert link recommendation: %w", execErr)
	}
	return nil
}

func (r *LinkRecommendationRepository) getOne(ctx context.Context, where string, arg any) (*domain.LinkRecommendation, error) {
	var row recommendationRow
	query := `SELECT ` + recommendationColumns + ` FROM link_recommendations WHERE ` + where

	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // absence is a normal outcome
		}
		return nil, err
	}
	return row.toDomain()
}

// GetByRevID returns the recommendation computed for exactly revID, or nil.
func (r *LinkRecommendationRepository) GetByRevID(ctx context.Context, revID int64) (*domain.LinkRecommendation, error) {
	rec, err := r.getOne(ctx, "revision_id = $1", revID)
	if err != nil {
		return nil, fmt.Errorf("get link recommendation by revision: %w", err)
	}
	return rec, nil
}

// GetByPageID returns the stored recommendation for the page, whatever its
// revision, or nil.
func (r *LinkRecommendationRepository) GetByPageID(ctx context.Context, pageID int64) (*domain.LinkRecommendation, error) {
	rec, err := r.getOne(ctx, "page_id = $1", pageID)
	if err != nil {
		return nil, fmt.Errorf("get link recommendation by page: %w", err)
	}
	return rec, nil
}

// GetByLinkTarget returns the recommendation for the page titled title. Only
// a recommendation for the page's current revision is returned unless
// allowAnyRevision is set.
func (r *LinkRecommendationRepository) GetByLinkTarget(
	ctx context.Context, title string, allowAnyRevision bool,
) (*domain.LinkRecommendation, error) {
	if r.revisions == nil {
		return nil, errors.New("get link recommendation by title: no revision lookup configured")
	}

	pageID, revID, err := r.revisions.CurrentRevision(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("resolve current revision of %q: %w", title, err)
	}

	if allowAnyRevision {
		return r.GetByPageID(ctx, pageID)
	}

	rec, err := r.GetByRevID(ctx, revID)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.PageID != pageID {
		return nil, nil //nolint:nilnil // revision belongs to another page
	}
	return rec, nil
}

// ListReferencingTarget returns up to limit recommendations that suggest a
// link to target.
func (r *LinkRecommendationRepository) ListReferencingTarget(
	ctx context.Context, target string, limit int,
) ([]*domain.LinkRecommendation, error) {
	probe, err := json.Marshal([]map[string]string{{"target": domain.NormalizeTitle(target)}})
	if err != nil {
		return nil, fmt.Errorf("encode target probe: %w", err)
	}

	query := `SELECT ` + recommendationColumns + `
		FROM link_recommendations
		WHERE links @> $1::jsonb
		ORDER BY page_id
		LIMIT $2`

	var rows []recommendationRow
	if selectErr := r.db.SelectContext(ctx, &rows, query, string(probe), limit); selectErr != nil {
		return nil, fmt.Errorf("list recommendations referencing %q: %w", target, selectErr)
	}

	out := make([]*domain.LinkRecommendation, 0, len(rows))
	for i := range rows {
		rec, decodeErr := rows[i].toDomain()
		if decodeErr != nil {
			return nil, decodeErr
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteByPageIDs removes recommendations for the pages and returns how many
// rows were deleted.
func (r *LinkRecommendationRepository) DeleteByPageIDs(ctx context.Context, pageIDs []int64) (int64, error) {
	if len(pageIDs) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM link_recommendations WHERE page_id = ANY($1)`, pq.Array(pageIDs))
	if err != nil {
		return 0, fmt.Errorf("delete link recommendations: %w", err)
	}

	n, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, fmt.Errorf("get affected rows: %w", rowsErr)
	}
	return n, nil
}

// DeleteByLinkTarget removes the recommendation of the page titled title. It
// reports false when there was none.
func (r *LinkRecommendationRepository) DeleteByLinkTarget(ctx context.Context, title string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM link_recommendations WHERE title = $1`, domain.NormalizeTitle(title))
	if err != nil {
		return false, fmt.Errorf("delete link recommendation by title: %w", err)
	}

	n, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return false, fmt.Errorf("get affected rows: %w", rowsErr)
	}
	return n > 0, nil
}

// GetExcludedLinkIDs returns up to limit target page IDs that editors have
// already accepted or rejected on the page.
func (r *LinkRecommendationRepository) GetExcludedLinkIDs(ctx context.Context, pageID int64, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT target_page_id
		FROM link_submissions
		WHERE page_id = $1 AND outcome IN ('accepted', 'rejected')
		ORDER BY target_page_id
		LIMIT $2`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, pageID, limit); err != nil {
		return nil, fmt.Errorf("get excluded link ids: %w", err)
	}
	return ids, nil
}

// InsertSubmissions records editor feedback in one statement.
func (r *LinkRecommendationRepository) InsertSubmissions(ctx context.Context, subs []domain.LinkSubmission) error {
	if len(subs) == 0 {
		return nil
	}

	query := `
		INSERT INTO link_submissions (page_id, revision_id, user_id, target, target_page_id, outcome)
		VALUES (:page_id, :revision_id, :user_id, :target, :target_page_id, :outcome)`

	if _, err := r.db.NamedExecContext(ctx, query, subs); err != nil {
		return fmt.Errorf("insert link submissions: %w", err)
	}
	return nil
}
