package configloader

import (
	"context"
	"maps"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// TopicMode selects where topics come from.
type TopicMode string

const (
	// TopicModePassthrough serves the topics defined in the document.
	TopicModePassthrough TopicMode = "passthrough"
	// TopicModeClassifier serves one classifier topic per configured ID.
	TopicModeClassifier TopicMode = "classifier"
)

// TopicDecorator wraps a Provider to choose the topic source and append
// extra task types. Extra types never replace ones from the base provider.
type TopicDecorator struct {
	base             Provider
	mode             TopicMode
	classifierTopics []string
	extraTaskTypes   []domain.TaskType
}

// NewTopicDecorator creates a decorator over base.
func NewTopicDecorator(base Provider, mode TopicMode, classifierTopics []string, extra ...domain.TaskType) *TopicDecorator {
	return &TopicDecorator{
		base:             base,
		mode:             mode,
		classifierTopics: classifierTopics,
		extraTaskTypes:   extra,
	}
}

// LoadTaskTypes returns the base task types plus the extra ones.
func (d *TopicDecorator) LoadTaskTypes(ctx context.Context) (map[string]domain.TaskType, error) {
	base, err := d.base.LoadTaskTypes(ctx)
	if err != nil {
		return nil, err
	}

	out := maps.Clone(base)
	if out == nil {
		out = map[string]domain.TaskType{}
	}
	for _, t := range d.extraTaskTypes {
		if _, exists := out[t.ID]; !exists {
			out[t.ID] = t
		}
	}
	return out, nil
}

// TaskTypes returns the task types ordered by ID.
func (d *TopicDecorator) TaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	m, err := d.LoadTaskTypes(ctx)
	if err != nil {
		return nil, err
	}
	return sortedTaskTypes(m), nil
}

// Topics returns wiki topics in passthrough mode, or classifier topics.
func (d *TopicDecorator) Topics(ctx context.Context) ([]domain.Topic, error) {
	if d.mode != TopicModeClassifier {
		return d.base.Topics(ctx)
	}

	topics := make([]domain.Topic, 0, len(d.classifierTopics))
	for _, id := range d.classifierTopics {
		topics = append(topics, domain.Topic{
			ID:               id,
			Kind:             domain.TopicClassifier,
			ClassifierTopics: []string{id},
		})
	}
	sortTopics(topics)
	return topics, nil
}

// LoadInfoboxTemplates delegates to the base provider.
func (d *TopicDecorator) LoadInfoboxTemplates(ctx context.Context) ([]string, error) {
	return d.base.LoadInfoboxTemplates(ctx)
}
