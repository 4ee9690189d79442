package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// Builder provides a fluent API for building HTTP servers.
type Builder struct {
	config       *Config
	logger       logger.Logger
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
}

// NewBuilder creates a builder for the named service.
func NewBuilder(serviceName string, port int) *Builder {
	return &Builder{
		config:       NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(log logger.Logger) *Builder {
	b.logger = log
	return b
}

// WithDebug enables gin debug mode.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the version reported by /health.
func (b *Builder) WithVersion(version string) *Builder {
	b.config.ServiceVersion = version
	return b
}

// WithCORSOrigins restricts allowed CORS origins.
func (b *Builder) WithCORSOrigins(origins []string) *Builder {
	b.config.CORS.AllowedOrigins = origins
	return b
}

// WithTimeouts sets the read, write, and idle timeouts.
func (b *Builder) WithTimeouts(read, write, idle time.Duration) *Builder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithHealthCheck adds a named health check.
func (b *Builder) WithHealthCheck(name string, checker HealthChecker) *Builder {
	b.healthChecks[name] = checker
	return b
}

// WithDatabaseHealthCheck adds a database check; failure is unhealthy.
func (b *Builder) WithDatabaseHealthCheck(ping func() error) *Builder {
	return b.WithHealthCheck("database", PingChecker("Database", HealthStatusUnhealthy, ping))
}

// WithRedisHealthCheck adds a Redis check; failure is degraded.
func (b *Builder) WithRedisHealthCheck(ping func() error) *Builder {
	return b.WithHealthCheck("redis", PingChecker("Redis", HealthStatusDegraded, ping))
}

// WithElasticsearchHealthCheck adds an Elasticsearch check; failure is degraded.
func (b *Builder) WithElasticsearchHealthCheck(ping func() error) *Builder {
	return b.WithHealthCheck("elasticsearch", PingChecker("Elasticsearch", HealthStatusDegraded, ping))
}

// WithRoutes sets the route setup function.
func (b *Builder) WithRoutes(setupRoutes func(*gin.Engine)) *Builder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the server.
func (b *Builder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.NewNop()
	}

	setup := func(router *gin.Engine) {
		RegisterHealthRoutes(router, HealthOptions{
			ServiceName:    b.config.ServiceName,
			ServiceVersion: b.config.ServiceVersion,
			Checks:         b.healthChecks,
		})
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	}

	return New(b.config, b.logger, setup)
}
