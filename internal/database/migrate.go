package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:blankimports // postgres migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       //nolint:blankimports // file source driver

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// DefaultMigrationsDir is resolved relative to the working directory.
const DefaultMigrationsDir = "migrations"

func newMigrator(dir, databaseURL string) (*migrate.Migrate, string, error) {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	if absPath, err := filepath.Abs(dir); err == nil {
		dir = absPath
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return nil, dir, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, dir, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(dir, databaseURL string, log logger.Logger) error {
	m, path, err := newMigrator(dir, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if upErr := m.Up(); upErr != nil {
		if errors.Is(upErr, migrate.ErrNoChange) {
			log.Info("No pending migrations", logger.String("migrations_path", path))
			return nil
		}
		return fmt.Errorf("run migrations: %w", upErr)
	}

	log.Info("Migrations applied successfully", logger.String("migrations_path", path))
	return nil
}

// MigrateDown rolls back steps migrations, one when steps is not positive.
func MigrateDown(dir, databaseURL string, steps int, log logger.Logger) error {
	m, path, err := newMigrator(dir, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if steps <= 0 {
		steps = 1
	}

	if stepErr := m.Steps(-steps); stepErr != nil {
		if errors.Is(stepErr, migrate.ErrNoChange) {
			log.Info("No migrations to roll back", logger.String("migrations_path", path))
			return nil
		}
		return fmt.Errorf("roll back migrations: %w", stepErr)
	}

	log.Info("Migrations rolled back",
		logger.String("migrations_path", path),
		logger.Int("steps", steps),
	)
	return nil
}

// MigrationVersion reports the applied version and whether it is dirty.
func MigrationVersion(dir, databaseURL string) (uint, bool, error) {
	m, _, err := newMigrator(dir, databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, vErr := m.Version()
	if vErr != nil {
		if errors.Is(vErr, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get migration version: %w", vErr)
	}
	return version, dirty, nil
}
