package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/suggester/internal/config"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "config.yml"

// LoadConfig loads and validates the service configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.GetConfigPath(DefaultConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger builds the service logger.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}
