package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/retry"
	"github.com/jonesrussell/north-cloud/suggester/internal/telemetry"
)

const (
	defaultBlock        = 5 * time.Second
	defaultClaimIdle    = 30 * time.Second
	defaultBatchSize    = 10
	readErrorBackoff    = time.Second
	consumerIDPrefixLen = 8
)

// ConsumerConfig names the stream and group to read from.
type ConsumerConfig struct {
	Stream     string
	Group      string
	ConsumerID string
	Block      time.Duration
	ClaimIdle  time.Duration
	BatchSize  int64
}

func (c *ConsumerConfig) setDefaults() {
	if c.ConsumerID == "" {
		c.ConsumerID = GenerateConsumerID()
	}
	if c.Block == 0 {
		c.Block = defaultBlock
	}
	if c.ClaimIdle == 0 {
		c.ClaimIdle = defaultClaimIdle
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
}

// GenerateConsumerID returns a unique consumer name.
func GenerateConsumerID() string {
	return "suggester-" + uuid.New().String()[:consumerIDPrefixLen]
}

// Consumer reads page events through a consumer group.
type Consumer struct {
	client    redis.Cmdable
	cfg       ConsumerConfig
	handler   Handler
	telemetry *telemetry.Provider
	log       logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewConsumer creates a consumer. It returns nil when client is nil.
func NewConsumer(client redis.Cmdable, cfg ConsumerConfig, handler Handler, tp *telemetry.Provider, log logger.Logger) *Consumer {
	if client == nil {
		return nil
	}
	cfg.setDefaults()
	return &Consumer{
		client:    client,
		cfg:       cfg,
		handler:   handler,
		telemetry: tp,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// ID returns the consumer name within the group.
func (c *Consumer) ID() string {
	return c.cfg.ConsumerID
}

// Start creates the group if needed and starts the read and claim loops.
func (c *Consumer) Start(ctx context.Context) error {
	err := retry.Do(ctx, retry.DefaultConfig(), c.EnsureGroup)
	if err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	c.log.Info("Starting page event consumer",
		logger.String("consumer_id", c.cfg.ConsumerID),
		logger.String("stream", c.cfg.Stream),
		logger.String("group", c.cfg.Group),
	)

	c.wg.Add(2)
	go c.consumeLoop(ctx)
	go c.claimLoop(ctx)
	return nil
}

// Stop ends the loops and waits for them.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// EnsureGroup creates the consumer group and stream when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return err
	}
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			c.log.Error("Failed to read from stream", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-time.After(readErrorBackoff):
			}
		}
	}
}

// Poll reads one batch of new messages, blocking up to the configured block
// time, and handles them. It returns how many messages were read.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.ConsumerID,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
			n++
		}
	}
	return n, nil
}

func (c *Consumer) claimLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.ClaimIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if _, err := c.ClaimAbandoned(ctx); err != nil {
				c.log.Error("Failed to auto-claim messages", logger.Error(err))
			}
		}
	}
}

// ClaimAbandoned takes over messages idle longer than the claim timeout and
// handles them.
func (c *Consumer) ClaimAbandoned(ctx context.Context) (int, error) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.ConsumerID,
		MinIdle:  c.cfg.ClaimIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	for _, msg := range messages {
		c.log.Info("Claimed abandoned message", logger.String("stream_id", msg.ID))
		c.process(ctx, msg)
	}
	return len(messages), nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		c.log.Error("Invalid message format", logger.String("stream_id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	var event PageEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		c.log.Error("Failed to unmarshal event", logger.String("stream_id", msg.ID), logger.Error(err))
		c.ack(ctx, msg.ID)
		return
	}

	if !event.EventType.Valid() {
		c.log.Warn("Unknown event type", logger.String("event_type", string(event.EventType)))
		c.ack(ctx, msg.ID)
		return
	}

	err := c.handler.HandlePageEvent(ctx, event)
	c.telemetry.RecordEvent(string(event.EventType), err)
	if err != nil {
		c.log.Error("Failed to handle event",
			logger.String("event_type", string(event.EventType)),
			logger.PageID(event.PageID),
			logger.Error(err),
		)
		return
	}

	c.ack(ctx, msg.ID)
	c.log.Debug("Processed page event",
		logger.String("event_type", string(event.EventType)),
		logger.PageID(event.PageID),
		logger.String("stream_id", msg.ID),
	)
}

func (c *Consumer) ack(ctx context.Context, streamID string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, streamID).Err(); err != nil {
		c.log.Error("Failed to ACK message", logger.String("stream_id", streamID), logger.Error(err))
	}
}
