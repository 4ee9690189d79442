// Package events carries page change notifications over a Redis stream.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a page change.
type EventType string

const (
	PageEdited  EventType = "page.edited"
	PageDeleted EventType = "page.deleted"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == PageEdited || t == PageDeleted
}

// PageEvent is the stream envelope for a page change.
type PageEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	EventType  EventType `json:"event_type"`
	PageID     int64     `json:"page_id"`
	Title      string    `json:"title"`
	RevisionID int64     `json:"revision_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handler receives decoded events. Returning an error leaves the message
// pending so it is retried.
type Handler interface {
	HandlePageEvent(ctx context.Context, event PageEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event PageEvent) error

// HandlePageEvent implements Handler.
func (f HandlerFunc) HandlePageEvent(ctx context.Context, event PageEvent) error {
	return f(ctx, event)
}
