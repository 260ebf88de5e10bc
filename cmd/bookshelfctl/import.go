package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appimport "github.com/xiebiao/bookshelf/internal/application/bookimport"
	"github.com/xiebiao/bookshelf/internal/domain/bookimport"
)

var (
	importFile       string
	importDuplicates string
	importEnrich     bool
	importBatchSize  int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import books from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var policy bookimport.DuplicatePolicy
		if importDuplicates != "" {
			p, err := bookimport.ParseDuplicatePolicy(importDuplicates)
			if err != nil {
				return err
			}
			policy = p
		}

		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()

		a, cleanup, err := newApp(cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer cleanup()

		enrich := cfg.Enrichment.Enabled
		if cmd.Flags().Changed("enrich") {
			enrich = importEnrich
		}

		result, err := a.Import.Execute(cmd.Context(), appimport.ImportRequest{
			OwnerID:  ownerID,
			Filename: filepath.Base(importFile),
			File:     f,
			Options: bookimport.Options{
				Duplicates: policy,
				Enrich:     enrich,
				BatchSize:  importBatchSize,
				BatchDelay: cfg.Import.BatchDelay,
			},
		})
		if result != nil {
			if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("job_id", result.JobID),
			zap.String("status", result.Status),
			zap.Int("valid_rows", result.ValidRows),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importDuplicates, "duplicates", "", "duplicate handling: skip | fail | allow (default from config)")
	importCmd.Flags().BoolVar(&importEnrich, "enrich", false, "look up missing metadata on OpenLibrary")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 0, "enrichment batch size (default from config)")
	_ = importCmd.MarkFlagRequired("file")
	requireOwner(importCmd)
	rootCmd.AddCommand(importCmd)
}
