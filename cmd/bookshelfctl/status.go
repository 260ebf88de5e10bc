package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appimport "github.com/xiebiao/bookshelf/internal/application/bookimport"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show an import job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer cleanup()

		result, err := a.Status.Execute(cmd.Context(), appimport.GetImportStatusRequest{
			OwnerID: ownerID,
			JobID:   args[0],
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	requireOwner(statusCmd)
	rootCmd.AddCommand(statusCmd)
}
