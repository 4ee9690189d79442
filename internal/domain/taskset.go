package domain

import (
	"encoding/json"
	"iter"
	"math/rand/v2"
	"slices"
)

// TopicsMatchMode controls how multiple topics combine.
type TopicsMatchMode string

const (
	TopicsMatchOR  TopicsMatchMode = "OR"
	TopicsMatchAND TopicsMatchMode = "AND"
)

// Task pairs a task type with a candidate page. It is a view over search
// results and is never stored.
type Task struct {
	TaskType    TaskType           `json:"taskType"`
	Title       string             `json:"title"`
	PageID      int64              `json:"pageId"`
	TopicScores map[string]float64 `json:"topicScores,omitempty"`
}

// TaskSetFilters selects which task types and topics a suggestion covers.
type TaskSetFilters struct {
	TaskTypeIDs     []string        `json:"taskTypes"`
	TopicIDs        []string        `json:"topics"`
	TopicsMatchMode TopicsMatchMode `json:"topicsMode"`
}

// Canonical returns a stable serialization: IDs sorted and deduplicated, and
// an empty match mode treated as OR.
func (f TaskSetFilters) Canonical() string {
	mode := f.TopicsMatchMode
	if mode == "" {
		mode = TopicsMatchOR
	}
	b, _ := json.Marshal(TaskSetFilters{
		TaskTypeIDs:     sortedUnique(f.TaskTypeIDs),
		TopicIDs:        sortedUnique(f.TopicIDs),
		TopicsMatchMode: mode,
	})
	return string(b)
}

// Equal reports whether two filter sets select the same tasks.
func (f TaskSetFilters) Equal(other TaskSetFilters) bool {
	return f.Canonical() == other.Canonical()
}

func sortedUnique(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// QualityGates maps task type ID to opaque policy flags for the caller.
type QualityGates map[string]map[string]any

// TaskSet is an ordered page of tasks. Tasks can be read by index or
// iterated; the only mutations are Truncate and RandomSort.
type TaskSet struct {
	tasks        []Task
	rawTotal     int
	offset       int
	filters      TaskSetFilters
	invalid      []Task
	qualityGates QualityGates
	debugData    map[string]any
}

// NewTaskSet builds a task set. rawTotal is the number of matches reported
// by the search backend.
func NewTaskSet(tasks []Task, rawTotal, offset int, filters TaskSetFilters) *TaskSet {
	return &TaskSet{
		tasks:    slices.Clone(tasks),
		rawTotal: rawTotal,
		offset:   offset,
		filters:  filters,
	}
}

// Len returns the number of tasks in the set.
func (s *TaskSet) Len() int { return len(s.tasks) }

// At returns the task at index i. It panics when i is out of range.
func (s *TaskSet) At(i int) Task { return s.tasks[i] }

// All iterates the tasks in order.
func (s *TaskSet) All() iter.Seq2[int, Task] {
	return func(yield func(int, Task) bool) {
		for i, t := range s.tasks {
			if !yield(i, t) {
				return
			}
		}
	}
}

// Tasks returns a copy of the tasks.
func (s *TaskSet) Tasks() []Task { return slices.Clone(s.tasks) }

// TotalCount is the backend match count minus the tasks found invalid.
func (s *TaskSet) TotalCount() int { return s.rawTotal - len(s.invalid) }

// Offset returns the pagination offset the set was fetched with.
func (s *TaskSet) Offset() int { return s.offset }

// Filters returns the filters that produced the set.
func (s *TaskSet) Filters() TaskSetFilters { return s.filters }

// InvalidTasks returns tasks dropped after the search.
func (s *TaskSet) InvalidTasks() []Task { return slices.Clone(s.invalid) }

// QualityGates returns the attached policy flags, which may be nil.
func (s *TaskSet) QualityGates() QualityGates { return s.qualityGates }

// DebugData returns backend diagnostics collected in debug mode.
func (s *TaskSet) DebugData() map[string]any { return s.debugData }

// Truncate keeps at most n tasks.
func (s *TaskSet) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(s.tasks) {
		s.tasks = s.tasks[:n:n]
	}
}

// RandomSort shuffles the tasks.
func (s *TaskSet) RandomSort(rng *rand.Rand) {
	rng.Shuffle(len(s.tasks), func(i, j int) {
		s.tasks[i], s.tasks[j] = s.tasks[j], s.tasks[i]
	})
}

func (s *TaskSet) clone() *TaskSet {
	out := *s
	out.tasks = slices.Clone(s.tasks)
	out.invalid = slices.Clone(s.invalid)
	return &out
}

// WithInvalid returns a new set where tasks matching isInvalid are moved to
// the invalid list.
func (s *TaskSet) WithInvalid(isInvalid func(Task) bool) *TaskSet {
	out := s.clone()
	out.tasks = out.tasks[:0]
	for _, t := range s.tasks {
		if isInvalid(t) {
			out.invalid = append(out.invalid, t)
			continue
		}
		out.tasks = append(out.tasks, t)
	}
	return out
}

// WithQualityGates returns a new set carrying gates.
func (s *TaskSet) WithQualityGates(gates QualityGates) *TaskSet {
	out := s.clone()
	out.qualityGates = gates
	return out
}

// WithDebugData returns a new set carrying backend diagnostics.
func (s *TaskSet) WithDebugData(data map[string]any) *TaskSet {
	out := s.clone()
	out.debugData = data
	return out
}

type taskSetJSON struct {
	Tasks        []Task         `json:"tasks"`
	TotalCount   int            `json:"totalCount"`
	RawTotal     int            `json:"rawTotal"`
	Offset       int            `json:"offset"`
	Filters      TaskSetFilters `json:"filters"`
	InvalidTasks []Task         `json:"invalidTasks,omitempty"`
	QualityGates QualityGates   `json:"qualityGates,omitempty"`
	Debug        map[string]any `json:"debug,omitempty"`
}

// MarshalJSON encodes the set for API responses and the cache.
func (s *TaskSet) MarshalJSON() ([]byte, error) {
	tasks := s.tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return json.Marshal(taskSetJSON{
		Tasks:        tasks,
		TotalCount:   s.TotalCount(),
		RawTotal:     s.rawTotal,
		Offset:       s.offset,
		Filters:      s.filters,
		InvalidTasks: s.invalid,
		QualityGates: s.qualityGates,
		Debug:        s.debugData,
	})
}

// UnmarshalJSON decodes a set written by MarshalJSON.
func (s *TaskSet) UnmarshalJSON(data []byte) error {
	var raw taskSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = TaskSet{
		tasks:        raw.Tasks,
		rawTotal:     raw.RawTotal,
		offset:       raw.Offset,
		filters:      raw.Filters,
		invalid:      raw.InvalidTasks,
		qualityGates: raw.QualityGates,
		debugData:    raw.Debug,
	}
	return nil
}
