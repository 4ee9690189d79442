package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand() *cobra.Command {
	var anyRevision bool

	cmd := &cobra.Command{
		Use:   "show <title>",
		Short: "Print the stored link recommendation for a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			title := args[0]

			deps, err := newCommandDeps(ctx)
			if err != nil {
				return err
			}
			defer deps.Close()

			rec, err := deps.svc.Repository.GetByLinkTarget(ctx, title, anyRevision)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%s: no recommendation stored", title)
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encode recommendation: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&anyRevision, "any-revision", false, "Show the stored recommendation even if the page has changed since")

	return cmd
}
