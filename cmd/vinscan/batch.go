package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vinscan/internal/async"
	"github.com/joseph-ayodele/vinscan/internal/entity"
	"github.com/joseph-ayodele/vinscan/internal/export"
	"github.com/joseph-ayodele/vinscan/internal/ingest"
	"github.com/joseph-ayodele/vinscan/internal/repository"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

var (
	batchDir           string
	batchOut           string
	batchWorkers       int
	batchIncludeHidden bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract VINs from every photo under a directory and write an XLSX report",
	Long: `Walk --dir for images, extract VINs concurrently and write one report row per
photo. Extractions are recorded in the configured database, or in an
in-memory SQLite database when none is configured.

Examples:
  vinscan batch --dir ./photos
  vinscan batch --dir ./photos --out vins.xlsx --workers 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		out := batchOut
		if out == "" {
			out = filepath.Join(filepath.Dir(filepath.Clean(batchDir)), "vins.xlsx")
		}
		workers := batchWorkers
		if workers <= 0 {
			workers = a.cfg.Extraction.Workers
		}

		paths, scanErrs, stats, err := ingest.ScanDirectory(ctx, batchDir, !batchIncludeHidden)
		if err != nil {
			return err
		}
		for _, se := range scanErrs {
			a.logger.Warn("scan.error", "path", se.Path, "error", se.Err)
		}
		a.logger.Info("scan complete", "dir", batchDir, "scanned", stats.Scanned, "matched", stats.Matched,
			"skipped", stats.Skipped, "failed", stats.Failed)
		if len(paths) == 0 {
			return fmt.Errorf("no images found under %s", batchDir)
		}

		db, err := a.openAudit(ctx, true)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer db.Close()
		records := &collector{ExtractionRepository: repository.NewExtractionRepository(db, a.logger)}

		svc, err := a.extractor(records)
		if err != nil {
			return err
		}

		progress := newProgress(cmd.OutOrStdout())
		q := async.NewExtractionQueue(svc, a.logger,
			async.WithWorkers(workers),
			async.WithQueueSize(a.cfg.Extraction.QueueSize),
			async.WithProcessTimeout(a.cfg.Extraction.OCRTimeout+30*time.Second),
			async.WithResultHandler(progress.report),
		)
		batchID := uuid.NewString()
		for _, p := range paths {
			if err := q.Enqueue(ctx, async.Job{Path: p, RequestID: batchID}); err != nil {
				a.logger.Warn("enqueue failed", "path", p, "error", err)
				break
			}
		}
		q.Shutdown(context.WithoutCancel(ctx))

		xlsx, err := export.Workbook(records.newestFirst())
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}
		if err := os.WriteFile(out, xlsx, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		found, total := progress.totals()
		fmt.Fprintf(cmd.OutOrStdout(), "found %d VINs in %d images; report written to %s\n", found, total, out)
		if ctx.Err() != nil {
			return errors.New("interrupted before every image was processed")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of photos to process (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output XLSX path (default: vins.xlsx next to --dir)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent extractions (default: extraction.workers)")
	batchCmd.Flags().BoolVar(&batchIncludeHidden, "include-hidden", false, "also process dot-files and dot-directories")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

// collector records through the wrapped repository and keeps the rows written
// during this run for the report.
type collector struct {
	repository.ExtractionRepository

	mu   sync.Mutex
	rows []*entity.Extraction
}

func (c *collector) Record(ctx context.Context, e *entity.Extraction) error {
	err := c.ExtractionRepository.Record(ctx, e)
	c.mu.Lock()
	c.rows = append(c.rows, e)
	c.mu.Unlock()
	return err
}

func (c *collector) newestFirst() []*entity.Extraction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]*entity.Extraction(nil), c.rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// progress prints one line per finished image. Workers call report concurrently.
type progress struct {
	mu           sync.Mutex
	w            io.Writer
	found, total int
}

func newProgress(w io.Writer) *progress { return &progress{w: w} }

func (p *progress) report(job async.Job, res vin.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	switch {
	case res.Found:
		p.found++
		fmt.Fprintf(p.w, "%s\t%s\t%.2f\n", job.Path, res.VIN, res.Confidence)
	case res.Failure != nil:
		fmt.Fprintf(p.w, "%s\t-\t%s\n", job.Path, res.Failure.Message)
	default:
		fmt.Fprintf(p.w, "%s\t-\tno VIN found\n", job.Path)
	}
}

func (p *progress) totals() (found, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.found, p.total
}
