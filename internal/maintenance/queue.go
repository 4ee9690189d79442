package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RefreshQueue is a Redis list of page titles waiting for regeneration.
type RefreshQueue struct {
	client redis.Cmdable
	key    string
}

// NewRefreshQueue creates a queue stored under key.
func NewRefreshQueue(client redis.Cmdable, key string) *RefreshQueue {
	return &RefreshQueue{client: client, key: key}
}

// Enqueue appends titles to the queue.
func (q *RefreshQueue) Enqueue(ctx context.Context, titles ...string) error {
	if len(titles) == 0 {
		return nil
	}

	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	if err := q.client.RPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("enqueue refresh: %w", err)
	}
	return nil
}

// Drain removes and returns up to n titles in queue order.
func (q *RefreshQueue) Drain(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	titles, err := q.client.LPopCount(ctx, q.key, n).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("drain refresh queue: %w", err)
	}
	return titles, nil
}

// Len returns the number of queued titles.
func (q *RefreshQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("refresh queue length: %w", err)
	}
	return n, nil
}
