package configloader

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/tasktype"
)

// Config is a fully parsed and migrated configuration document.
type Config struct {
	TaskTypes        map[string]domain.TaskType
	Disabled         map[string]bool
	Topics           []domain.Topic
	InfoboxTemplates []string
}

type document struct {
	Version          string                 `json:"version"`
	TaskTypes        map[string]taskTypeDoc `json:"taskTypes"`
	Topics           map[string]topicDoc    `json:"topics"`
	InfoboxTemplates []string               `json:"infoboxTemplates"`
}

type taskTypeDoc struct {
	Difficulty         string         `json:"difficulty"`
	Handler            string         `json:"handler"`
	Templates          []string       `json:"templates"`
	ExcludedTemplates  []string       `json:"excludedTemplates"`
	ExcludedCategories []string       `json:"excludedCategories"`
	LearnMoreLink      string         `json:"learnMoreLink"`
	Settings           map[string]any `json:"settings"`
	Disabled           bool           `json:"disabled"`
}

type topicDoc struct {
	Group            string   `json:"group"`
	Kind             string   `json:"kind"`
	ReferencePages   []string `json:"referencePages"`
	ClassifierTopics []string `json:"classifierTopics"`
	SearchExpression string   `json:"searchExpression"`
}

// Parse decodes, validates, and migrates a configuration document. Every
// failure is a *ConfigError.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, configErr(ErrInvalidConfig, "decode json: %w", err)
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, configErr(ErrInvalidConfig, "document must be a JSON object")
	}

	migrated, migrateErr := Migrate(doc)
	if migrateErr != nil {
		var cfgErr *ConfigError
		if errors.As(migrateErr, &cfgErr) {
			return nil, cfgErr
		}
		return nil, &ConfigError{Reason: ErrInvalidConfig, Err: migrateErr}
	}

	normalized, marshalErr := json.Marshal(migrated)
	if marshalErr != nil {
		return nil, configErr(ErrInvalidConfig, "encode migrated document: %w", marshalErr)
	}

	var typed document
	if err := json.Unmarshal(normalized, &typed); err != nil {
		return nil, configErr(ErrInvalidConfig, "decode migrated document: %w", err)
	}

	return buildConfig(&typed)
}

func buildConfig(doc *document) (*Config, error) {
	cfg := &Config{
		TaskTypes:        make(map[string]domain.TaskType, len(doc.TaskTypes)),
		Disabled:         map[string]bool{},
		InfoboxTemplates: doc.InfoboxTemplates,
	}

	for id, t := range doc.TaskTypes {
		taskType := domain.TaskType{
			ID:                 id,
			Difficulty:         domain.Difficulty(t.Difficulty),
			Handler:            domain.HandlerID(t.Handler),
			Templates:          t.Templates,
			ExcludedTemplates:  t.ExcludedTemplates,
			ExcludedCategories: t.ExcludedCategories,
			LearnMoreLink:      t.LearnMoreLink,
			Settings:           t.Settings,
		}

		handler, lookupErr := tasktype.ForTaskType(taskType)
		if lookupErr != nil {
			return nil, configErr(ErrInvalidConfig, "task type %s: %w", id, lookupErr)
		}
		if err := handler.Validate(taskType); err != nil {
			return nil, &ConfigError{Reason: ErrInvalidConfig, Err: err}
		}

		cfg.TaskTypes[id] = taskType
		if t.Disabled {
			cfg.Disabled[id] = true
		}
	}

	for id, t := range doc.Topics {
		cfg.Topics = append(cfg.Topics, domain.Topic{
			ID:               id,
			GroupID:          t.Group,
			Kind:             domain.TopicKind(t.Kind),
			ReferencePages:   t.ReferencePages,
			ClassifierTopics: t.ClassifierTopics,
			SearchExpression: t.SearchExpression,
		})
	}
	sortTopics(cfg.Topics)

	return cfg, nil
}

func sortTopics(topics []domain.Topic) {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].GroupID != topics[j].GroupID {
			return topics[i].GroupID < topics[j].GroupID
		}
		return topics[i].ID < topics[j].ID
	})
}
