package config

import "fmt"

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePort checks that port is in the TCP range.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := ValidatePort("database.port", c.Database.Port); err != nil {
		return err
	}

	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}
	if c.Database.Database == "" {
		return &ValidationError{Field: "database.database", Message: "is required"}
	}

	if c.Auth.JWTSecret == "" {
		return &ValidationError{Field: "auth.jwt_secret", Message: "is required"}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}

	switch c.Tasks.TopicMode {
	case "passthrough", "classifier":
	default:
		return &ValidationError{Field: "tasks.topic_mode", Message: "must be one of: passthrough, classifier"}
	}

	if c.Tasks.TopicMode == "classifier" && len(c.Tasks.ClassifierTopics) == 0 {
		return &ValidationError{Field: "tasks.classifier_topics", Message: "is required in classifier mode"}
	}

	if c.Cache.Size < 0 {
		return &ValidationError{Field: "cache.size", Message: "must not be negative"}
	}

	if c.Maintenance.PagesPerSecond < 0 {
		return &ValidationError{Field: "maintenance.pages_per_second", Message: "must not be negative"}
	}

	return nil
}
