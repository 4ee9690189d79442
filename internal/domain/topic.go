package domain

import (
	"strings"
)

// TopicKind distinguishes how a topic narrows the candidate search.
type TopicKind string

const (
	// TopicMoreLike topics are defined on-wiki by a list of reference pages.
	TopicMoreLike TopicKind = "morelike"
	// TopicClassifier topics use precomputed classifier scores.
	TopicClassifier TopicKind = "classifier"
	// TopicCampaign topics carry a raw search expression.
	TopicCampaign TopicKind = "campaign"
)

// Topic is a subject-matter filter applied to candidate search.
type Topic struct {
	ID               string    `json:"id"`
	GroupID          string    `json:"groupId,omitempty"`
	Kind             TopicKind `json:"kind"`
	ReferencePages   []string  `json:"referencePages,omitempty"`
	ClassifierTopics []string  `json:"classifierTopics,omitempty"`
	SearchExpression string    `json:"searchExpression,omitempty"`
}

// Predicate returns the search fragment that restricts results to the topic,
// or "" when the topic has nothing to match on.
func (t Topic) Predicate() string {
	switch t.Kind {
	case TopicMoreLike:
		if len(t.ReferencePages) == 0 {
			return ""
		}
		return `morelikethis:"` + strings.Join(t.ReferencePages, "|") + `"`
	case TopicClassifier:
		ids := t.ClassifierTopics
		if len(ids) == 0 {
			ids = []string{t.ID}
		}
		return "articletopic:" + strings.Join(ids, "|")
	case TopicCampaign:
		return strings.TrimSpace(t.SearchExpression)
	default:
		return ""
	}
}
