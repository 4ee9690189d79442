package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jonesrussell/north-cloud/suggester/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/suggester/internal/database"
)

// Exit codes for the migrate command.
const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down [steps]|version>")
		return exitFailure
	}

	command := os.Args[1]

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	dir := os.Getenv("MIGRATIONS_DIR")
	url := cfg.Database.MigrateURL()

	switch command {
	case "up":
		err = database.MigrateUp(dir, url, log)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, convErr := strconv.Atoi(os.Args[2])
			if convErr != nil {
				fmt.Fprintf(os.Stderr, "Invalid step count: %q\n", os.Args[2])
				return exitFailure
			}
			steps = n
		}
		err = database.MigrateDown(dir, url, steps, log)
	case "version":
		version, dirty, vErr := database.MigrationVersion(dir, url)
		if vErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration version: %v\n", vErr)
			return exitFailure
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Invalid command: %q (must be \"up\", \"down\" or \"version\")\n", command)
		return exitFailure
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", command, err)
		return exitFailure
	}

	fmt.Printf("Migration %s completed successfully\n", command)
	return exitSuccess
}
