package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export books as CSV (a commented template when the collection is empty)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := newApp(cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer cleanup()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := a.Export.Execute(cmd.Context(), ownerID, w)
		if err != nil {
			return err
		}
		zap.L().Info("export complete", zap.Int("books", n), zap.String("out", exportOut))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	requireOwner(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
