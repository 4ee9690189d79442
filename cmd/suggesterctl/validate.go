package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
)

func newValidateConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config <path>",
		Short: "Check a task type and topic document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			cfg, err := configloader.Parse(data)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(cfg.TaskTypes))
			for id := range cfg.TaskTypes {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s is valid\n", args[0])
			for _, id := range ids {
				state := "enabled"
				if cfg.Disabled[id] {
					state = "disabled"
				}
				fmt.Fprintf(w, "  task type %-24s %-8s %s\n", id, cfg.TaskTypes[id].Handler, state)
			}
			fmt.Fprintf(w, "  %d topic(s)\n", len(cfg.Topics))
			return nil
		},
	}
}
