// Command suggesterctl runs maintenance operations against the suggester
// stores outside of the HTTP service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/suggester/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "suggesterctl",
		Short:         "Maintain suggested edit tasks and link recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRefreshCommand(),
		newShowCommand(),
		newDeleteCommand(),
		newValidateConfigCommand(),
	)
	return root
}

// commandDeps are the wired services a command works with.
type commandDeps struct {
	log   logger.Logger
	infra *bootstrap.Infrastructure
	svc   *bootstrap.Services
}

func (d *commandDeps) Close() {
	d.infra.Close(d.log)
	_ = d.log.Sync()
}

func newCommandDeps(ctx context.Context) (*commandDeps, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, err
	}

	infra, err := bootstrap.SetupInfrastructure(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("setup infrastructure: %w", err)
	}

	return &commandDeps{
		log:   log,
		infra: infra,
		svc:   bootstrap.BuildServices(ctx, cfg, infra, log),
	}, nil
}
