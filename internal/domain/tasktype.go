// Package domain holds the value types shared by the suggester pipeline:
// task types, topics, task sets, pages, and link recommendations.
package domain

import (
	"encoding/json"
	"time"
)

// Difficulty is the tier a task type is presented under.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// HandlerID names the algorithm family that drives a task type.
type HandlerID string

const (
	HandlerTemplateBased       HandlerID = "template-based"
	HandlerLinkRecommendation  HandlerID = "link-recommendation"
	HandlerImageRecommendation HandlerID = "image-recommendation"
	HandlerNull                HandlerID = "null"
)

// TaskType describes one category of suggested edit. Values are immutable
// once produced by the configuration loader; slices must not be modified.
type TaskType struct {
	ID                 string         `json:"id"`
	Difficulty         Difficulty     `json:"difficulty"`
	Handler            HandlerID      `json:"handler"`
	Templates          []string       `json:"templates,omitempty"`
	ExcludedTemplates  []string       `json:"excludedTemplates,omitempty"`
	ExcludedCategories []string       `json:"excludedCategories,omitempty"`
	LearnMoreLink      string         `json:"learnMoreLink,omitempty"`
	Settings           map[string]any `json:"settings,omitempty"`
}

// IsStructured reports whether the task type is backed by stored
// machine-generated recommendations.
func (t TaskType) IsStructured() bool {
	return t.Handler == HandlerLinkRecommendation || t.Handler == HandlerImageRecommendation
}

// LinkRecommendationSettings are the tunables of a link-recommendation task type.
type LinkRecommendationSettings struct {
	MinimumLinkScore         float64
	MaximumLinksPerTask      int
	MinimumLinksPerTask      int
	MinimumTimeSinceLastEdit time.Duration
	MaximumTasksPerDay       int
	UnderlinkedMinLength     int
	UnderlinkedExponent      float64
	PruneRedLinks            bool
}

// DefaultLinkRecommendationSettings returns the settings used when a task
// type leaves a key unset.
func DefaultLinkRecommendationSettings() LinkRecommendationSettings {
	return LinkRecommendationSettings{
		MinimumLinkScore:         0.6,
		MaximumLinksPerTask:      10,
		MinimumLinksPerTask:      2,
		MinimumTimeSinceLastEdit: 24 * time.Hour,
		MaximumTasksPerDay:       25,
		UnderlinkedMinLength:     300,
		UnderlinkedExponent:      4,
		PruneRedLinks:            true,
	}
}

// LinkRecommendationSettings reads typed settings, falling back to defaults
// for missing or mistyped keys.
func (t TaskType) LinkRecommendationSettings() LinkRecommendationSettings {
	s := DefaultLinkRecommendationSettings()
	if v, ok := settingFloat(t.Settings, "minimumLinkScore"); ok {
		s.MinimumLinkScore = v
	}
	if v, ok := settingFloat(t.Settings, "maximumLinksPerTask"); ok {
		s.MaximumLinksPerTask = int(v)
	}
	if v, ok := settingFloat(t.Settings, "minimumLinksPerTask"); ok {
		s.MinimumLinksPerTask = int(v)
	}
	if v, ok := settingFloat(t.Settings, "minimumTimeSinceLastEdit"); ok {
		s.MinimumTimeSinceLastEdit = time.Duration(v * float64(time.Second))
	}
	if v, ok := settingFloat(t.Settings, "maximumTasksPerDay"); ok {
		s.MaximumTasksPerDay = int(v)
	}
	if v, ok := settingFloat(t.Settings, "underlinkedMinLength"); ok {
		s.UnderlinkedMinLength = int(v)
	}
	if v, ok := settingFloat(t.Settings, "underlinkedExponent"); ok {
		s.UnderlinkedExponent = v
	}
	if v, ok := t.Settings["pruneRedLinks"].(bool); ok {
		s.PruneRedLinks = v
	}
	return s
}

// MaximumTasksPerDay returns the daily quota for structured task types, or
// zero when the type has none.
func (t TaskType) MaximumTasksPerDay() int {
	if !t.IsStructured() {
		return 0
	}
	if v, ok := settingFloat(t.Settings, "maximumTasksPerDay"); ok {
		return int(v)
	}
	return DefaultLinkRecommendationSettings().MaximumTasksPerDay
}

// SettingString returns a string setting or "".
func (t TaskType) SettingString(key string) string {
	s, _ := t.Settings[key].(string)
	return s
}

func settingFloat(settings map[string]any, key string) (float64, bool) {
	switch v := settings[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
