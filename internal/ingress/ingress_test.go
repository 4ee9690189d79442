package ingress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/events"
	"github.com/jonesrussell/north-cloud/suggester/internal/ingress"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

type fakeStore struct {
	stored       map[int64]*domain.LinkRecommendation
	referencing  []*domain.LinkRecommendation
	getErr       error
	deleteErr    error
	deletedIDs   []int64
	deletedTitle []string
}

func (s *fakeStore) GetByPageID(_ context.Context, pageID int64) (*domain.LinkRecommendation, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.stored[pageID], nil
}

func (s *fakeStore) DeleteByPageIDs(_ context.Context, ids []int64) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, ids...)
	return int64(len(ids)), nil
}

func (s *fakeStore) DeleteByLinkTarget(_ context.Context, title string) (bool, error) {
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	s.deletedTitle = append(s.deletedTitle, title)
	return true, nil
}

func (s *fakeStore) ListReferencingTarget(context.Context, string, int) ([]*domain.LinkRecommendation, error) {
	return s.referencing, nil
}

type fakeQueue struct {
	titles []string
}

func (q *fakeQueue) Enqueue(_ context.Context, titles ...string) error {
	q.titles = append(q.titles, titles...)
	return nil
}

type fakeIndex struct {
	cleared []string
	err     error
}

func (f *fakeIndex) ClearRecommended(_ context.Context, title string) error {
	f.cleared = append(f.cleared, title)
	return f.err
}

type recordingSubscriber struct {
	name    string
	order   *[]string
	changes []ingress.PageChange
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) OnPageChange(_ context.Context, change ingress.PageChange) {
	*r.order = append(*r.order, r.name)
	r.changes = append(r.changes, change)
}

func storedAt(pageID, revID int64) map[int64]*domain.LinkRecommendation {
	return map[int64]*domain.LinkRecommendation{
		pageID: {Title: "Nokia", PageID: pageID, RevisionID: revID},
	}
}

func TestRecommendationInvalidator_Edit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stored      map[int64]*domain.LinkRecommendation
		revisionID  int64
		wantDeleted []int64
	}{
		{name: "new revision deletes", stored: storedAt(42, 100), revisionID: 101, wantDeleted: []int64{42}},
		{name: "same revision keeps", stored: storedAt(42, 100), revisionID: 100},
		{name: "unknown revision deletes", stored: storedAt(42, 100), revisionID: 0, wantDeleted: []int64{42}},
		{name: "nothing stored", stored: nil, revisionID: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{stored: tt.stored}
			inv := ingress.NewRecommendationInvalidator(store, nil, nil, logger.NewNop())

			inv.OnPageChange(t.Context(), ingress.PageChange{
				Kind: ingress.ChangeEdited, PageID: 42, Title: "Nokia", RevisionID: tt.revisionID,
			})

			assert.Equal(t, tt.wantDeleted, store.deletedIDs)
		})
	}
}

func TestRecommendationInvalidator_DeleteQueuesReferencingPages(t *testing.T) {
	t.Parallel()

	store := &fakeStore{referencing: []*domain.LinkRecommendation{
		{PageID: 7, Title: "Finland"},
		{PageID: 9, Title: "Espoo"},
	}}
	queue := &fakeQueue{}
	inv := ingress.NewRecommendationInvalidator(store, queue, nil, logger.NewNop())

	inv.OnPageChange(t.Context(), ingress.PageChange{Kind: ingress.ChangeDeleted, PageID: 42, Title: "Nokia"})

	assert.Equal(t, []string{"Nokia"}, store.deletedTitle)
	assert.Equal(t, []string{"Finland", "Espoo"}, queue.titles)
}

func TestRecommendationInvalidator_SwallowsStoreErrors(t *testing.T) {
	t.Parallel()

	store := &fakeStore{getErr: errors.New("db down"), deleteErr: errors.New("db down")}
	inv := ingress.NewRecommendationInvalidator(store, &fakeQueue{}, nil, logger.NewNop())

	assert.NotPanics(t, func() {
		inv.OnPageChange(t.Context(), ingress.PageChange{Kind: ingress.ChangeEdited, PageID: 1, RevisionID: 2})
		inv.OnPageChange(t.Context(), ingress.PageChange{Kind: ingress.ChangeDeleted, PageID: 1, Title: "A"})
	})
	assert.Empty(t, store.deletedIDs)
}

func TestIndexFlagClearer(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{err: errors.New("not found")}
	clearer := ingress.NewIndexFlagClearer(index, nil, logger.NewNop())

	clearer.OnPageChange(t.Context(), ingress.PageChange{Kind: ingress.ChangeEdited, Title: "Nokia"})
	clearer.OnPageChange(t.Context(), ingress.PageChange{Kind: ingress.ChangeEdited})

	assert.Equal(t, []string{"Nokia"}, index.cleared)
}

func TestIndexFlagClearer_SkipsEditsOfStoredRevision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		change      ingress.PageChange
		wantCleared []string
	}{
		{
			name:        "same revision keeps flag",
			change:      ingress.PageChange{Kind: ingress.ChangeEdited, PageID: 42, Title: "Nokia", RevisionID: 100},
			wantCleared: nil,
		},
		{
			name:        "new revision clears flag",
			change:      ingress.PageChange{Kind: ingress.ChangeEdited, PageID: 42, Title: "Nokia", RevisionID: 101},
			wantCleared: []string{"Nokia"},
		},
		{
			name:        "unknown revision clears flag",
			change:      ingress.PageChange{Kind: ingress.ChangeEdited, PageID: 42, Title: "Nokia"},
			wantCleared: []string{"Nokia"},
		},
		{
			name:        "delete clears flag",
			change:      ingress.PageChange{Kind: ingress.ChangeDeleted, PageID: 42, Title: "Nokia", RevisionID: 100},
			wantCleared: []string{"Nokia"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{stored: map[int64]*domain.LinkRecommendation{
				42: {PageID: 42, RevisionID: 100},
			}}
			index := &fakeIndex{}
			clearer := ingress.NewIndexFlagClearer(index, store, logger.NewNop())

			clearer.OnPageChange(t.Context(), tt.change)

			if len(index.cleared) != len(tt.wantCleared) {
				t.Fatalf("cleared = %v, want %v", index.cleared, tt.wantCleared)
			}
			for i := range tt.wantCleared {
				if index.cleared[i] != tt.wantCleared[i] {
					t.Errorf("cleared[%d] = %q, want %q", i, index.cleared[i], tt.wantCleared[i])
				}
			}
		})
	}
}

func TestDispatcher_DeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	var order []string
	first := &recordingSubscriber{name: "first", order: &order}
	second := &recordingSubscriber{name: "second", order: &order}

	d := ingress.NewDispatcher(logger.NewNop(), first)
	d.Register(second)

	err := d.HandlePageEvent(t.Context(), events.PageEvent{
		EventType: events.PageEdited, PageID: 42, Title: "Nokia", RevisionID: 101,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, second.changes, 1)
	assert.Equal(t, ingress.PageChange{Kind: ingress.ChangeEdited, PageID: 42, Title: "Nokia", RevisionID: 101}, second.changes[0])
}

func TestDispatcher_RejectsUnknownEvent(t *testing.T) {
	t.Parallel()

	d := ingress.NewDispatcher(logger.NewNop())
	err := d.HandlePageEvent(t.Context(), events.PageEvent{EventType: "page.moved"})
	require.Error(t, err)
}

func TestToEvent(t *testing.T) {
	t.Parallel()

	event := ingress.ToEvent(ingress.PageChange{Kind: ingress.ChangeDeleted, PageID: 3, Title: "Espoo"})
	assert.Equal(t, events.PageDeleted, event.EventType)

	change, err := ingress.FromEvent(event)
	require.NoError(t, err)
	assert.Equal(t, ingress.ChangeDeleted, change.Kind)
	assert.Equal(t, "Espoo", change.Title)
}
