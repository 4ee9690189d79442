// Package config loads the suggester service configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"time"
)

// Default service configuration values.
const (
	defaultServiceName    = "suggester"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8094
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Default database configuration values.
const (
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "suggester"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultDBConnLifetimeH = 1
)

// Default backend and job configuration values.
const (
	defaultESURL             = "http://localhost:9200"
	defaultESPagesIndex      = "wiki_pages"
	defaultESMaxRetries      = 3
	defaultRedisAddress      = "localhost:6379"
	defaultTasksConfigPath   = "tasks.json"
	defaultTopicMode         = "passthrough"
	defaultCacheTTL          = time.Hour
	defaultCacheSize         = 200
	defaultSchedule          = "*/30 * * * *"
	defaultPerTopicLimit     = 50
	defaultPagesPerSecond    = 5
	defaultEventsStream      = "page-events"
	defaultEventsGroup       = "suggester-workers"
	defaultRefreshQueueKey   = "suggester:refresh-queue"
	defaultRefreshQueueBatch = 100
)

// Config holds the application configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Database      DatabaseConfig      `yaml:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Tasks         TasksConfig         `yaml:"tasks"`
	Cache         CacheConfig         `yaml:"cache"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance"`
	Events        EventsConfig        `yaml:"events"`
}

// ServiceConfig holds service identity and runtime settings.
// Zero timeouts use the server defaults.
type ServiceConfig struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Port         int           `env:"SUGGESTER_PORT"         yaml:"port"`
	Debug        bool          `env:"APP_DEBUG"              yaml:"debug"`
	CORSOrigins  []string      `env:"SUGGESTER_CORS_ORIGINS" yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string        `env:"POSTGRES_SUGGESTER_HOST"     yaml:"host"`
	Port                  int           `env:"POSTGRES_SUGGESTER_PORT"     yaml:"port"`
	User                  string        `env:"POSTGRES_SUGGESTER_USER"     yaml:"user"`
	Password              string        `env:"POSTGRES_SUGGESTER_PASSWORD" yaml:"password"` //nolint:gosec // G117: DB connection config
	Database              string        `env:"POSTGRES_SUGGESTER_DB"       yaml:"database"`
	SSLMode               string        `yaml:"sslmode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// DSN returns the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MigrateURL returns the URL form golang-migrate expects.
func (d *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// ElasticsearchConfig holds the page index connection settings.
type ElasticsearchConfig struct {
	URL        string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username   string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password   string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"` //nolint:gosec // G117: ES connection config
	PagesIndex string `env:"ELASTICSEARCH_PAGES_INDEX" yaml:"pages_index"`
	MaxRetries int    `yaml:"max_retries"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"` //nolint:gosec // G117: Redis connection config
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// TasksConfig points at the task type and topic document.
type TasksConfig struct {
	ConfigPath        string   `env:"SUGGESTER_TASKS_CONFIG" yaml:"config_path"`
	Watch             bool     `yaml:"watch"`
	TopicMode         string   `yaml:"topic_mode"`
	ClassifierTopics  []string `yaml:"classifier_topics"`
	DisabledTaskTypes []string `env:"SUGGESTER_DISABLED_TASK_TYPES" yaml:"disabled_task_types"`
	NullTaskTerm      string   `yaml:"null_task_term"`
}

// CacheConfig controls the per-user task set cache.
type CacheConfig struct {
	Enabled bool          `env:"SUGGESTER_CACHE_ENABLED" yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Size    int           `yaml:"size"`
}

// MaintenanceConfig controls the scheduled recommendation refresh.
type MaintenanceConfig struct {
	Enabled           bool    `env:"SUGGESTER_MAINTENANCE_ENABLED" yaml:"enabled"`
	Schedule          string  `yaml:"schedule"`
	PerTopicLimit     int     `yaml:"per_topic_limit"`
	PagesPerSecond    float64 `yaml:"pages_per_second"`
	RefreshQueueKey   string  `yaml:"refresh_queue_key"`
	RefreshQueueBatch int     `yaml:"refresh_queue_batch"`
}

// EventsConfig controls the page event stream.
type EventsConfig struct {
	ConsumerEnabled bool   `env:"SUGGESTER_EVENTS_CONSUMER" yaml:"consumer_enabled"`
	Stream          string `yaml:"stream"`
	Group           string `yaml:"group"`
	ConsumerID      string `env:"SUGGESTER_CONSUMER_ID" yaml:"consumer_id"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	cfg, loadErr := LoadWithDefaults(path, setDefaults)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setBackendDefaults(cfg)
	setLoggingDefaults(&cfg.Logging)
	setTaskDefaults(&cfg.Tasks)
	setJobDefaults(cfg)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnectionMaxLifetime == 0 {
		d.ConnectionMaxLifetime = defaultDBConnLifetimeH * time.Hour
	}
}

func setBackendDefaults(cfg *Config) {
	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = defaultESURL
	}
	if cfg.Elasticsearch.PagesIndex == "" {
		cfg.Elasticsearch.PagesIndex = defaultESPagesIndex
	}
	if cfg.Elasticsearch.MaxRetries == 0 {
		cfg.Elasticsearch.MaxRetries = defaultESMaxRetries
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setTaskDefaults(t *TasksConfig) {
	if t.ConfigPath == "" {
		t.ConfigPath = defaultTasksConfigPath
	}
	if t.TopicMode == "" {
		t.TopicMode = defaultTopicMode
	}
}

func setJobDefaults(cfg *Config) {
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = defaultCacheSize
	}

	m := &cfg.Maintenance
	if m.Schedule == "" {
		m.Schedule = defaultSchedule
	}
	if m.PerTopicLimit == 0 {
		m.PerTopicLimit = defaultPerTopicLimit
	}
	if m.PagesPerSecond == 0 {
		m.PagesPerSecond = defaultPagesPerSecond
	}
	if m.RefreshQueueKey == "" {
		m.RefreshQueueKey = defaultRefreshQueueKey
	}
	if m.RefreshQueueBatch == 0 {
		m.RefreshQueueBatch = defaultRefreshQueueBatch
	}

	if cfg.Events.Stream == "" {
		cfg.Events.Stream = defaultEventsStream
	}
	if cfg.Events.Group == "" {
		cfg.Events.Group = defaultEventsGroup
	}
}
