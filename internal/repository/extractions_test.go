package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/entity"
	"github.com/joseph-ayodele/vinscan/internal/repository"
)

func openTestDB(t *testing.T) *repository.DB {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: common.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	// idempotent
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestExtractionRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.HealthCheck(ctx, time.Second))
	repo := repository.NewExtractionRepository(db, nil)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	found := &entity.Extraction{
		CreatedAt:      base,
		Source:         "plates/civic.jpg",
		ImageSHA256:    "abc123",
		Engine:         "tesseract",
		Status:         constants.StatusFound,
		VIN:            "1HGBH41JXMN109186",
		Confidence:     0.97,
		Manufacturer:   "Honda",
		Strategy:       "direct",
		CheckDigit:     "valid",
		CandidateCount: 2,
		RawText:        "VIN 1HGBH41JXMN109186",
		DurationMS:     412,
		Diagnostics:    json.RawMessage(`{"candidate_count":2}`),
	}
	require.NoError(t, repo.Record(ctx, found))
	require.NotEqual(t, uuid.Nil, found.ID)

	missed := &entity.Extraction{
		CreatedAt: base.Add(time.Minute),
		Source:    "plates/blurry.jpg",
		Engine:    "tesseract",
		Status:    constants.StatusNotFound,
		RawText:   "MADE IN USA",
	}
	require.NoError(t, repo.Record(ctx, missed))

	failed := &entity.Extraction{
		CreatedAt:      base.Add(2 * time.Minute),
		Source:         "grpc",
		Engine:         "tesseract",
		Status:         constants.StatusServiceError,
		FailureMessage: "ocr timed out",
	}
	require.NoError(t, repo.Record(ctx, failed))

	t.Run("get round trip", func(t *testing.T) {
		got, err := repo.Get(ctx, found.ID)
		require.NoError(t, err)
		assert.Equal(t, found.ID, got.ID)
		assert.True(t, base.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
		assert.Equal(t, "1HGBH41JXMN109186", got.VIN)
		assert.True(t, got.Found())
		assert.InDelta(t, 0.97, got.Confidence, 1e-9)
		assert.Equal(t, 2, got.CandidateCount)
		assert.Equal(t, int64(412), got.DurationMS)
		assert.JSONEq(t, `{"candidate_count":2}`, string(got.Diagnostics))
	})

	t.Run("missing diagnostics stored as empty object", func(t *testing.T) {
		got, err := repo.Get(ctx, missed.ID)
		require.NoError(t, err)
		assert.False(t, got.Found())
		assert.JSONEq(t, `{}`, string(got.Diagnostics))
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		all, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []uuid.UUID{failed.ID, missed.ID, found.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

		two, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, two, 2)
		assert.Equal(t, failed.ID, two[0].ID)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		dup := *found
		err := repo.Record(ctx, &dup)
		assert.ErrorIs(t, err, common.ErrDatabase)
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := repository.Open(context.Background(), repository.Config{Driver: "mysql"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
