package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vinscan/internal/async"
	"github.com/joseph-ayodele/vinscan/internal/ingest"
	"github.com/joseph-ayodele/vinscan/internal/repository"
)

var (
	watchDirs        []string
	watchInitialScan bool
	watchDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Extract VINs from photos as they are dropped into a directory",
	Long: `Watch one or more directories (recursively) and extract the VIN of every new
image. Runs until interrupted; queued images are finished before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}

		db, err := a.openAudit(ctx, false)
		if err != nil {
			return err
		}
		var records repository.ExtractionRepository
		if db != nil {
			defer db.Close()
			records = repository.NewExtractionRepository(db, a.logger)
		}
		svc, err := a.extractor(records)
		if err != nil {
			return err
		}

		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       watchDirs,
			InitialScan: watchInitialScan,
			SkipHidden:  true,
			Debounce:    watchDebounce,
		}, a.logger)
		if err != nil {
			return err
		}

		progress := newProgress(cmd.OutOrStdout())
		q := async.NewExtractionQueue(svc, a.logger,
			async.WithWorkers(a.cfg.Extraction.Workers),
			async.WithQueueSize(a.cfg.Extraction.QueueSize),
			async.WithProcessTimeout(a.cfg.Extraction.OCRTimeout+30*time.Second),
			async.WithResultHandler(progress.report),
		)
		a.logger.Info("watching for photos", "dirs", watchDirs)

		for paths != nil || errs != nil {
			select {
			case p, ok := <-paths:
				if !ok {
					paths = nil
					continue
				}
				if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
					a.logger.Warn("enqueue failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				a.logger.Warn("watcher error", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		q.Shutdown(shutdownCtx)
		found, total := progress.totals()
		a.logger.Info("watch stopped", "processed", total, "found", found)
		return nil
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDirs, "dir", nil, "directory to watch, repeatable (required)")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "also process images already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a new file is processed")
	_ = watchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(watchCmd)
}
