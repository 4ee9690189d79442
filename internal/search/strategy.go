// Package search turns task types and topics into search queries.
package search

import (
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/tasktype"
)

// Sort orders for a query.
const (
	SortRelevance   = ""
	SortUnderlinked = "underlinked_score"
)

// Query is one search for a (task type, topic) pair.
type Query struct {
	// Key is "{taskTypeId}:{topicId}", or "{taskTypeId}" without a topic.
	Key         string
	TaskType    domain.TaskType
	Topic       *domain.Topic
	QueryString string
	Sort        string
}

// Strategy builds queries from the handler table.
type Strategy struct{}

// NewStrategy returns a Strategy.
func NewStrategy() *Strategy {
	return &Strategy{}
}

// Queries returns one query per (task type, topic) pair in input order.
// Task types without a search term and topics without a predicate are
// skipped. With no topics, each task type gets a single query.
func (s *Strategy) Queries(taskTypes []domain.TaskType, topics []domain.Topic) []Query {
	var queries []Query

	for _, tt := range taskTypes {
		term := tasktype.SearchTerm(tt)
		if term == "" {
			continue
		}

		sort := SortRelevance
		if tt.Handler == domain.HandlerLinkRecommendation {
			sort = SortUnderlinked
		}

		if len(topics) == 0 {
			queries = append(queries, Query{Key: tt.ID, TaskType: tt, QueryString: term, Sort: sort})
			continue
		}

		for i := range topics {
			predicate := topics[i].Predicate()
			if predicate == "" {
				continue
			}
			queries = append(queries, Query{
				Key:         tt.ID + ":" + topics[i].ID,
				TaskType:    tt,
				Topic:       &topics[i],
				QueryString: term + " " + predicate,
				Sort:        sort,
			})
		}
	}

	return queries
}
