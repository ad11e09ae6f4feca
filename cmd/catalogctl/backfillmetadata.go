package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/mediacatalog/internal/extractor"
	"github.com/tomtom215/mediacatalog/internal/indexer"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/scanner"
)

func newBackfillMetadataCmd() *cobra.Command {
	var workers, batch, limit int
	var timeoutSeconds int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill-metadata",
		Short: "Extract EXIF metadata for photos missing it",
		Long: "Drives PhotoRepository.MissingMetadata plus the FeatureExtractor (§6), " +
			"marking a row failed once it has failed ScanConfig.MaxMetadataFailures times; a row whose " +
			"width, height or date_taken is still null stays a candidate whatever its status. " +
			"Commits are checkpointed in batches of --batch rows, so an interrupted run resumes " +
			"from the last saved batch instead of starting over.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			projectID, err := resolveProject(ctx, db, projectName)
			if err != nil {
				return err
			}

			scanCfg := cfg.Scan
			if workers > 0 {
				scanCfg.HashWorkers = workers
			}

			fe := extractor.NewResilientExtractor(extractor.NewBasicExtractor(), "backfill-metadata")
			ix := indexer.New(db, scanner.NewFSScanner(), fe, &scanCfg)

			timeout := time.Duration(timeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = cfg.Scan.ExtractorTimeout
			}

			result, err := ix.BackfillMetadata(ctx, projectID, scanCfg.HashWorkers, limit, timeout, batch, dryRun)
			if err != nil {
				logging.Error().Err(err).Msg("backfill-metadata failed")
				return err
			}

			fmt.Printf("candidates=%d succeeded=%d failed=%d\n", result.Candidates, result.Succeeded, result.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent extraction workers (default: scan.hash_workers)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "per-file extractor timeout in seconds (default: scan.extractor_timeout)")
	cmd.Flags().IntVar(&batch, "batch", 0, "rows per resumable checkpoint batch (default: 50)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum candidate rows to process (0 = unlimited)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract but do not write results back")
	return cmd
}
