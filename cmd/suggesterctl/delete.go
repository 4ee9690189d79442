package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCommand() *cobra.Command {
	var pageIDs []int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete stored link recommendations",
		Long: `Deletes the stored link recommendations of the given pages.

Example:
  suggesterctl delete --page-id 42 --page-id 43`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(pageIDs) == 0 {
				return errors.New("at least one --page-id is required")
			}

			deps, err := newCommandDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.svc.Repository.DeleteByPageIDs(cmd.Context(), pageIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d recommendation(s)\n", n)
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&pageIDs, "page-id", nil, "Page ID whose recommendation should be deleted")

	return cmd
}
