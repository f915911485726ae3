package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/entity"
	"github.com/joseph-ayodele/vinscan/internal/repository"
)

const (
	SheetExtractions = "Extractions"
	SheetSummary     = "Summary"
)

// Service produces XLSX reports of the extraction audit log.
type Service struct {
	repo   repository.ExtractionRepository
	logger *slog.Logger
}

func NewService(repo repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExtractionsXLSX returns a workbook with the most recent limit extractions
// (all when limit <= 0), newest first.
func (s *Service) ExtractionsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	recs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	b, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

var headers = []string{
	"Time (UTC)",
	"Source",
	"Status",
	"VIN",
	"Confidence",
	"Manufacturer",
	"Check Digit",
	"Strategy",
	"Candidates",
	"Engine",
	"Duration (ms)",
	"Failure / Raw Text",
}

// Workbook renders recs as XLSX bytes.
func Workbook(recs []*entity.Extraction) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet rather than leaving an empty "Sheet1"
	if err := f.SetSheetName("Sheet1", SheetExtractions); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetExtractions, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetExtractions, 1, 1, style)
	}

	counts := map[constants.ExtractionStatus]int{}
	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetExtractions, cell, v)
		}
		counts[r.Status]++

		write(1, r.CreatedAt.UTC().Format(time.RFC3339))
		write(2, r.Source)
		write(3, string(r.Status))
		write(4, r.VIN)
		if r.Found() {
			write(5, r.Confidence)
		}
		write(6, r.Manufacturer)
		write(7, r.CheckDigit)
		write(8, r.Strategy)
		write(9, r.CandidateCount)
		write(10, r.Engine)
		write(11, r.DurationMS)
		note := r.FailureMessage
		if note == "" && !r.Found() {
			note = r.RawText
		}
		write(12, truncate(note, 140))
	}

	_ = f.SetColWidth(SheetExtractions, "A", "A", 22)
	_ = f.SetColWidth(SheetExtractions, "B", "B", 40)
	_ = f.SetColWidth(SheetExtractions, "C", "C", 14)
	_ = f.SetColWidth(SheetExtractions, "D", "D", 22)
	_ = f.SetColWidth(SheetExtractions, "E", "K", 13)
	_ = f.SetColWidth(SheetExtractions, "L", "L", 60)

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(SheetSummary, "A1", "Status")
	_ = f.SetCellValue(SheetSummary, "B1", "Count")
	statuses := []constants.ExtractionStatus{
		constants.StatusFound, constants.StatusNotFound, constants.StatusInputError, constants.StatusServiceError,
	}
	for i, st := range statuses {
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", i+2), string(st))
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", i+2), counts[st])
	}
	_ = f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", len(statuses)+2), "TOTAL")
	_ = f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", len(statuses)+2), len(recs))

	idx, _ := f.GetSheetIndex(SheetExtractions)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
