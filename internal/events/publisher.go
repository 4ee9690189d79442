package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// payloadField is the stream entry field holding the JSON envelope.
const payloadField = "event"

// Publisher appends page events to a Redis stream.
type Publisher struct {
	client redis.Cmdable
	stream string
	log    logger.Logger
}

// NewPublisher creates a publisher. It returns nil when client is nil, and a
// nil *Publisher publishes nothing.
func NewPublisher(client redis.Cmdable, stream string, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client, stream: stream, log: log}
}

// Publish sends event, filling in its ID and timestamp when unset. It
// returns the stream entry ID.
func (p *Publisher) Publish(ctx context.Context, event PageEvent) (string, error) {
	if p == nil {
		return "", nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{payloadField: string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to stream: %w", err)
	}

	p.log.Debug("Published page event",
		logger.String("event_type", string(event.EventType)),
		logger.PageID(event.PageID),
		logger.String("stream_id", id),
	)
	return id, nil
}
