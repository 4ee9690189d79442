// Package ingress reacts to page changes by invalidating stored link
// recommendations and the page index flag that advertises them.
package ingress

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/suggester/internal/events"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// ChangeKind says what happened to a page.
type ChangeKind string

const (
	ChangeEdited  ChangeKind = "edited"
	ChangeDeleted ChangeKind = "deleted"
)

// PageChange is the notification passed to subscribers.
type PageChange struct {
	Kind       ChangeKind
	PageID     int64
	Title      string
	RevisionID int64
}

// Subscriber receives page changes. Subscribers handle their own failures.
type Subscriber interface {
	Name() string
	OnPageChange(ctx context.Context, change PageChange)
}

// Dispatcher delivers changes to registered subscribers in registration order.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	log         logger.Logger
}

// NewDispatcher creates a dispatcher with the given subscribers.
func NewDispatcher(log logger.Logger, subscribers ...Subscriber) *Dispatcher {
	return &Dispatcher{subscribers: subscribers, log: log}
}

// Register adds a subscriber.
func (d *Dispatcher) Register(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, s)
}

// Notify delivers change to every subscriber synchronously.
func (d *Dispatcher) Notify(ctx context.Context, change PageChange) {
	d.mu.RLock()
	subs := d.subscribers
	d.mu.RUnlock()

	d.log.Debug("Dispatching page change",
		logger.String("kind", string(change.Kind)),
		logger.PageID(change.PageID),
		logger.Title(change.Title),
	)

	for _, s := range subs {
		s.OnPageChange(ctx, change)
	}
}

// HandlePageEvent converts a stream event into a PageChange and dispatches
// it. It implements events.Handler.
func (d *Dispatcher) HandlePageEvent(ctx context.Context, event events.PageEvent) error {
	change, err := FromEvent(event)
	if err != nil {
		return err
	}
	d.Notify(ctx, change)
	return nil
}

// FromEvent maps a stream event onto a PageChange.
func FromEvent(event events.PageEvent) (PageChange, error) {
	var kind ChangeKind
	switch event.EventType {
	case events.PageEdited:
		kind = ChangeEdited
	case events.PageDeleted:
		kind = ChangeDeleted
	default:
		return PageChange{}, fmt.Errorf("unknown event type %q", event.EventType)
	}

	return PageChange{
		Kind:       kind,
		PageID:     event.PageID,
		Title:      event.Title,
		RevisionID: event.RevisionID,
	}, nil
}

// ToEvent maps a PageChange onto a stream event.
func ToEvent(change PageChange) events.PageEvent {
	eventType := events.PageEdited
	if change.Kind == ChangeDeleted {
		eventType = events.PageDeleted
	}
	return events.PageEvent{
		EventType:  eventType,
		PageID:     change.PageID,
		Title:      change.Title,
		RevisionID: change.RevisionID,
	}
}
