package domain_test

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

func makeTasks(n int) []domain.Task {
	linkType := domain.TaskType{ID: "link-recommendation", Handler: domain.HandlerLinkRecommendation}
	tasks := make([]domain.Task, n)
	for i := range tasks {
		tasks[i] = domain.Task{TaskType: linkType, Title: "Page " + string(rune('A'+i)), PageID: int64(i + 1)}
	}
	return tasks
}

func TestTaskSet_TotalCountExcludesInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tasks    int
		rawTotal int
		invalid  map[int64]bool
	}{
		{name: "no invalid", tasks: 3, rawTotal: 40, invalid: nil},
		{name: "one invalid", tasks: 3, rawTotal: 40, invalid: map[int64]bool{2: true}},
		{name: "all invalid", tasks: 3, rawTotal: 3, invalid: map[int64]bool{1: true, 2: true, 3: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			set := domain.NewTaskSet(makeTasks(tt.tasks), tt.rawTotal, 0, domain.TaskSetFilters{})
			set = set.WithInvalid(func(task domain.Task) bool { return tt.invalid[task.PageID] })

			assert.Equal(t, tt.rawTotal-len(set.InvalidTasks()), set.TotalCount())
			assert.Equal(t, tt.tasks-len(tt.invalid), set.Len())
			assert.Len(t, set.InvalidTasks(), len(tt.invalid))
		})
	}
}

func TestTaskSet_WithInvalidLeavesOriginal(t *testing.T) {
	t.Parallel()

	set := domain.NewTaskSet(makeTasks(2), 2, 0, domain.TaskSetFilters{})
	_ = set.WithInvalid(func(domain.Task) bool { return true })

	assert.Equal(t, 2, set.Len())
	assert.Empty(t, set.InvalidTasks())
}

func TestTaskSet_Truncate(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 3, 5, 10} {
		set := domain.NewTaskSet(makeTasks(5), 5, 0, domain.TaskSetFilters{})
		set.Truncate(n)
		assert.Equal(t, min(n, 5), set.Len(), "Truncate(%d)", n)
	}
}

func TestTaskSet_RandomSortKeepsMembers(t *testing.T) {
	t.Parallel()

	set := domain.NewTaskSet(makeTasks(6), 6, 0, domain.TaskSetFilters{})
	set.RandomSort(rand.New(rand.NewPCG(1, 2)))

	seen := make(map[int64]bool)
	for _, task := range set.All() {
		seen[task.PageID] = true
	}
	assert.Len(t, seen, 6)
}

func TestTaskSet_TasksReturnsCopy(t *testing.T) {
	t.Parallel()

	set := domain.NewTaskSet(makeTasks(2), 2, 0, domain.TaskSetFilters{})
	tasks := set.Tasks()
	tasks[0].Title = "Changed"

	assert.Equal(t, "Page A", set.At(0).Title)
}

func TestTaskSet_QualityGatesReturnNewSet(t *testing.T) {
	t.Parallel()

	set := domain.NewTaskSet(makeTasks(1), 1, 0, domain.TaskSetFilters{})
	gated := set.WithQualityGates(domain.QualityGates{
		"link-recommendation": {"dailyLimit": true, "dailyCount": 25},
	})

	assert.Nil(t, set.QualityGates())
	assert.Equal(t, true, gated.QualityGates()["link-recommendation"]["dailyLimit"])
}

func TestTaskSet_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	filters := domain.TaskSetFilters{TaskTypeIDs: []string{"copyedit"}, TopicIDs: []string{"art"}}
	set := domain.NewTaskSet(makeTasks(3), 12, 4, filters).
		WithInvalid(func(task domain.Task) bool { return task.PageID == 3 })

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded domain.TaskSet
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, set.Len(), decoded.Len())
	assert.Equal(t, set.TotalCount(), decoded.TotalCount())
	assert.Equal(t, 4, decoded.Offset())
	assert.True(t, decoded.Filters().Equal(filters))
}

func TestTaskSetFilters_Canonical(t *testing.T) {
	t.Parallel()

	a := domain.TaskSetFilters{TaskTypeIDs: []string{"b", "a", "a"}, TopicIDs: []string{"x"}}
	b := domain.TaskSetFilters{TaskTypeIDs: []string{"a", "b"}, TopicIDs: []string{"x"}, TopicsMatchMode: domain.TopicsMatchOR}
	c := domain.TaskSetFilters{TaskTypeIDs: []string{"a", "b"}, TopicIDs: []string{"x"}, TopicsMatchMode: domain.TopicsMatchAND}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.JSONEq(t, `{"taskTypes":["a","b"],"topics":["x"],"topicsMode":"OR"}`, a.Canonical())
}
