package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/entity"
	"github.com/joseph-ayodele/vinscan/internal/export"
)

type listRepo struct {
	rows  []*entity.Extraction
	err   error
	limit int
}

func (l *listRepo) Record(context.Context, *entity.Extraction) error { return nil }

func (l *listRepo) Get(context.Context, uuid.UUID) (*entity.Extraction, error) { return nil, nil }

func (l *listRepo) ListRecent(_ context.Context, limit int) ([]*entity.Extraction, error) {
	l.limit = limit
	return l.rows, l.err
}

func TestExtractionsXLSX(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &listRepo{rows: []*entity.Extraction{
		{CreatedAt: at, Source: "a.jpg", Status: constants.StatusFound, VIN: "1HGBH41JXMN109186", Confidence: 0.97, Manufacturer: "Honda", CandidateCount: 2, Engine: "tesseract"},
		{CreatedAt: at, Source: "b.jpg", Status: constants.StatusNotFound, RawText: "MADE IN USA"},
		{CreatedAt: at, Source: "c.jpg", Status: constants.StatusServiceError, FailureMessage: "ocr timed out"},
	}}

	b, err := export.NewService(repo, nil).ExtractionsXLSX(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.limit)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetExtractions, export.SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetExtractions)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "VIN", rows[0][3])
	assert.Equal(t, "2024-03-01T12:00:00Z", rows[1][0])
	assert.Equal(t, "1HGBH41JXMN109186", rows[1][3])
	assert.Equal(t, "0.97", rows[1][4])
	assert.Equal(t, "Honda", rows[1][5])
	assert.Equal(t, "MADE IN USA", rows[2][11])
	assert.Equal(t, "ocr timed out", rows[3][11])

	summary, err := f.GetRows(export.SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"FOUND", "1"}, summary[1])
	assert.Equal(t, []string{"TOTAL", "3"}, summary[5])
}

func TestExtractionsXLSXRepoError(t *testing.T) {
	_, err := export.NewService(&listRepo{err: errors.New("boom")}, nil).ExtractionsXLSX(context.Background(), 0)
	assert.Error(t, err)
}
