// Package elasticsearch adapts the page index: client setup, search query
// translation, and page reads and updates.
package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/retry"
)

const (
	defaultURL         = "http://localhost:9200"
	defaultMaxRetries  = 3
	defaultPingTimeout = 5 * time.Second
)

// Config holds Elasticsearch client settings.
type Config struct {
	URL         string
	Username    string
	Password    string
	MaxRetries  int
	PingTimeout time.Duration
	Retry       retry.Config
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			IsRetryable:  retry.Always,
		}
	}
}

// NewClient creates a client and waits for the cluster to answer a ping.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	url := normalizeURL(cfg.URL)

	client, err := es.NewClient(es.Config{
		Addresses:  []string{url},
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	if retryErr := retry.Do(ctx, cfg.Retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		return Ping(pingCtx, client)
	}); retryErr != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", retryErr)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))
	return client, nil
}

// Ping checks that the cluster answers.
func Ping(ctx context.Context, client *es.Client) error {
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), readBody(res.Body))
	}
	return nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func readBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Sprintf("error reading response body: %v", err)
	}
	return string(body)
}
