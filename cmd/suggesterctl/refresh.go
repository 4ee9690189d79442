package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/suggester/internal/maintenance"
)

func newRefreshCommand() *cobra.Command {
	var opts maintenance.Options

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Generate link recommendations for candidate pages",
		Long: `Processes the refresh queue, then searches for pages without a stored
link recommendation and evaluates them.

Example:
  suggesterctl refresh --topic art --topic climate --limit 20
  suggesterctl refresh --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := newCommandDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			stats, err := deps.svc.Refresher.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("encode stats: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.TopicIDs, "topic", "t", nil, "Restrict candidate search to these topic IDs")
	cmd.Flags().IntVarP(&opts.PerTopicLimit, "limit", "n", 0, "Candidates to request per search (0 uses the configured limit)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Regenerate recommendations that are already current")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Count candidates without evaluating them")

	return cmd
}
