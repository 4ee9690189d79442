package database_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/database"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

var recommendationCols = []string{"page_id", "revision_id", "title", "links", "metadata"}

type stubRevisions struct {
	pageID, revID int64
	err           error
}

func (s stubRevisions) CurrentRevision(_ context.Context, _ string) (pageID, revisionID int64, err error) {
	return s.pageID, s.revID, s.err
}

func newMockRepo(t *testing.T, revisions database.RevisionLookup) (*database.LinkRecommendationRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return database.NewLinkRecommendationRepository(db, revisions), mock
}

func sampleRecommendation() *domain.LinkRecommendation {
	return &domain.LinkRecommendation{
		Title:      "Nokia",
		PageID:     42,
		RevisionID: 1001,
		Links: []domain.LinkRecommendationLink{
			{Text: "Espoo", Target: "Espoo", TargetPageID: 7, Score: 0.91, ContextBefore: "in ", ContextAfter: ", Finland", LinkIndex: 0},
			{Text: "mobile phones", Target: "Mobile phone", TargetPageID: 9, Score: 0.72, Instance: 1, LinkIndex: 1},
		},
		Metadata: domain.LinkRecommendationMetadata{
			ApplicationVersion: "test",
			CandidateCount:     14,
			GeneratedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func rowFor(t *testing.T, rec *domain.LinkRecommendation) []driver.Value {
	t.Helper()

	links, err := json.Marshal(rec.Links)
	require.NoError(t, err)
	meta, err := json.Marshal(rec.Metadata)
	require.NoError(t, err)

	return []driver.Value{rec.PageID, rec.RevisionID, rec.Title, links, meta}
}

func TestInsertThenGetByRevID_RoundTrips(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	rec := sampleRecommendation()
	row := rowFor(t, rec)

	mock.ExpectExec("INSERT INTO link_recommendations").
		WithArgs(rec.PageID, rec.RevisionID, rec.Title, string(row[3].([]byte)), string(row[4].([]byte))).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM link_recommendations WHERE revision_id = \\$1").
		WithArgs(rec.RevisionID).
		WillReturnRows(sqlmock.NewRows(recommendationCols).AddRow(row...))

	require.NoError(t, repo.Insert(t.Context(), rec))

	got, err := repo.GetByRevID(t.Context(), rec.RevisionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Links, got.Links)
	assert.Equal(t, rec.Metadata, got.Metadata)
	assert.Equal(t, rec.PageID, got.PageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_UpsertsOnPage(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (page_id) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(t.Context(), sampleRecommendation()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRevID_NotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectQuery("SELECT .+ FROM link_recommendations WHERE revision_id").
		WithArgs(int64(1002)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByRevID(t.Context(), 1002)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRevID_QueryError(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectQuery("SELECT .+ FROM link_recommendations").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByRevID(t.Context(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get link recommendation by revision")
}

func TestGetByPageID_ReturnsAnyRevision(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	rec := sampleRecommendation()
	mock.ExpectQuery("SELECT .+ FROM link_recommendations WHERE page_id = \\$1").
		WithArgs(rec.PageID).
		WillReturnRows(sqlmock.NewRows(recommendationCols).AddRow(rowFor(t, rec)...))

	got, err := repo.GetByPageID(t.Context(), rec.PageID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.RevisionID, got.RevisionID)
}

func TestGetByLinkTarget(t *testing.T) {
	t.Parallel()

	rec := sampleRecommendation()

	tests := []struct {
		name      string
		revisions stubRevisions
		allowAny  bool
		setupMock func(sqlmock.Sqlmock)
		wantFound bool
		wantErr   bool
	}{
		{
			name:      "current revision stored",
			revisions: stubRevisions{pageID: 42, revID: 1001},
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("WHERE revision_id").WithArgs(int64(1001)).
					WillReturnRows(sqlmock.NewRows(recommendationCols).AddRow(rowFor(t, rec)...))
			},
			wantFound: true,
		},
		{
			name:      "page edited since generation",
			revisions: stubRevisions{pageID: 42, revID: 1002},
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("WHERE revision_id").WithArgs(int64(1002)).WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name:      "stale revision allowed",
			revisions: stubRevisions{pageID: 42, revID: 1002},
			allowAny:  true,
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("WHERE page_id").WithArgs(int64(42)).
					WillReturnRows(sqlmock.NewRows(recommendationCols).AddRow(rowFor(t, rec)...))
			},
			wantFound: true,
		},
		{
			name:      "title lookup fails",
			revisions: stubRevisions{err: errors.New("page not found")},
			setupMock: func(sqlmock.Sqlmock) {},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMockRepo(t, tt.revisions)
			tt.setupMock(mock)

			got, err := repo.GetByLinkTarget(t.Context(), "Nokia", tt.allowAny)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, got != nil)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListReferencingTarget(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	rec := sampleRecommendation()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE links @> $1::jsonb")).
		WithArgs(`[{"target":"Espoo"}]`, 5).
		WillReturnRows(sqlmock.NewRows(recommendationCols).AddRow(rowFor(t, rec)...))

	got, err := repo.ListReferencingTarget(t.Context(), "Espoo", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].PageID)
}

func TestDeleteByPageIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ids       []int64
		setupMock func(sqlmock.Sqlmock)
		want      int64
	}{
		{
			name: "deletes only listed pages",
			ids:  []int64{42, 43},
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta("DELETE FROM link_recommendations WHERE page_id = ANY($1)")).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: 1,
		},
		{
			name:      "empty list is a no-op",
			setupMock: func(sqlmock.Sqlmock) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMockRepo(t, nil)
			tt.setupMock(mock)

			n, err := repo.DeleteByPageIDs(t.Context(), tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteByLinkTarget(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectExec("DELETE FROM link_recommendations WHERE title").
		WithArgs("Mobile phone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM link_recommendations WHERE title").
		WithArgs("Nokia").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteByLinkTarget(t.Context(), "Mobile_phone")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteByLinkTarget(t.Context(), "Nokia")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExcludedLinkIDs(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectQuery("SELECT DISTINCT target_page_id FROM link_submissions").
		WithArgs(int64(42), 100).
		WillReturnRows(sqlmock.NewRows([]string{"target_page_id"}).AddRow(int64(7)).AddRow(int64(9)))

	ids, err := repo.GetExcludedLinkIDs(t.Context(), 42, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids)
}

func TestInsertSubmissions(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t, nil)
	mock.ExpectExec("INSERT INTO link_submissions").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.InsertSubmissions(t.Context(), []domain.LinkSubmission{
		{PageID: 42, RevisionID: 1001, UserID: "u1", Target: "Espoo", TargetPageID: 7, Outcome: domain.OutcomeAccepted},
		{PageID: 42, RevisionID: 1001, UserID: "u1", Target: "Mobile_phone", TargetPageID: 9, Outcome: domain.OutcomeRejected},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, repo.InsertSubmissions(t.Context(), nil))
}
