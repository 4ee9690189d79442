// Package tasktype maps task-type handler IDs to their search and
// validation behavior.
package tasktype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
)

// ErrUnknownHandler is returned for a handler ID with no table entry.
var ErrUnknownHandler = errors.New("unknown task type handler")

// Handler is the behavior of one handler family.
type Handler struct {
	ID domain.HandlerID
	// searchTerm returns the handler-specific part of the search string.
	searchTerm func(domain.TaskType) string
	validate   func(domain.TaskType) error
}

// SearchTerm returns the full search term for the task type including
// template and category exclusions, or "" when the type cannot be searched.
func (h Handler) SearchTerm(t domain.TaskType) string {
	term := h.searchTerm(t)
	if term == "" {
		return ""
	}
	return term + ExclusionSuffix(t)
}

// BaseSearchTerm returns the term without exclusions.
func (h Handler) BaseSearchTerm(t domain.TaskType) string {
	return h.searchTerm(t)
}

// Validate checks handler-specific requirements of the task type.
func (h Handler) Validate(t domain.TaskType) error {
	if !t.Difficulty.Valid() {
		return fmt.Errorf("task type %s: invalid difficulty %q", t.ID, t.Difficulty)
	}
	if h.validate == nil {
		return nil
	}
	return h.validate(t)
}

// ExclusionSuffix returns the negated template and category clauses.
func ExclusionSuffix(t domain.TaskType) string {
	var b strings.Builder
	if len(t.ExcludedTemplates) > 0 {
		b.WriteString(` -hastemplate:"`)
		b.WriteString(strings.Join(t.ExcludedTemplates, "|"))
		b.WriteString(`"`)
	}
	if len(t.ExcludedCategories) > 0 {
		b.WriteString(` -incategory:"`)
		b.WriteString(strings.Join(t.ExcludedCategories, "|"))
		b.WriteString(`"`)
	}
	return b.String()
}

var handlers = map[domain.HandlerID]Handler{
	domain.HandlerTemplateBased: {
		ID: domain.HandlerTemplateBased,
		searchTerm: func(t domain.TaskType) string {
			if len(t.Templates) == 0 {
				return ""
			}
			return `hastemplate:"` + strings.Join(t.Templates, "|") + `"`
		},
		validate: func(t domain.TaskType) error {
			if len(t.Templates) == 0 {
				return fmt.Errorf("task type %s: template-based task types need templates", t.ID)
			}
			return nil
		},
	},
	domain.HandlerLinkRecommendation: {
		ID:         domain.HandlerLinkRecommendation,
		searchTerm: func(domain.TaskType) string { return "hasrecommendation:link" },
		validate: func(t domain.TaskType) error {
			s := t.LinkRecommendationSettings()
			if s.MinimumLinkScore < 0 || s.MinimumLinkScore > 1 {
				return fmt.Errorf("task type %s: minimumLinkScore must be within [0,1]", t.ID)
			}
			if s.MinimumLinksPerTask > s.MaximumLinksPerTask {
				return fmt.Errorf("task type %s: minimumLinksPerTask exceeds maximumLinksPerTask", t.ID)
			}
			return nil
		},
	},
	domain.HandlerImageRecommendation: {
		ID:         domain.HandlerImageRecommendation,
		searchTerm: func(domain.TaskType) string { return "hasrecommendation:image" },
	},
	domain.HandlerNull: {
		ID:         domain.HandlerNull,
		searchTerm: func(t domain.TaskType) string { return t.SettingString("searchTerm") },
	},
}

// Lookup returns the handler for id.
func Lookup(id domain.HandlerID) (Handler, error) {
	h, ok := handlers[id]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrUnknownHandler, id)
	}
	return h, nil
}

// ForTaskType returns the handler for t.
func ForTaskType(t domain.TaskType) (Handler, error) {
	return Lookup(t.Handler)
}

// SearchTerm is a shorthand for the handler's term; unknown handlers yield "".
func SearchTerm(t domain.TaskType) string {
	h, err := ForTaskType(t)
	if err != nil {
		return ""
	}
	return h.SearchTerm(t)
}

// Known reports whether id has a handler.
func Known(id domain.HandlerID) bool {
	_, ok := handlers[id]
	return ok
}

// NullTaskTypeID is the ID of the catch-all task type.
const NullTaskTypeID = "_nulltasktype"

// NullTaskType returns a catch-all task type. An empty searchTerm makes it
// invisible to search.
func NullTaskType(searchTerm string) domain.TaskType {
	settings := map[string]any{}
	if searchTerm != "" {
		settings["searchTerm"] = searchTerm
	}
	return domain.TaskType{
		ID:         NullTaskTypeID,
		Difficulty: domain.DifficultyEasy,
		Handler:    domain.HandlerNull,
		Settings:   settings,
	}
}
