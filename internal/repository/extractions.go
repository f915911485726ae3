package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/entity"
)

const extractionsTable = "vin_extractions"

var extractionColumns = []string{
	"id", "created_at", "source", "image_sha256", "engine", "status", "vin", "confidence",
	"manufacturer", "strategy", "check_digit", "candidate_count", "failure_message",
	"raw_text", "duration_ms", "diagnostics",
}

type ExtractionRepository interface {
	Record(ctx context.Context, e *entity.Extraction) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Extraction, error)
}

type extractionRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionRepository(db *DB, log *slog.Logger) ExtractionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRepo{db: db, log: log}
}

// Record inserts e, filling ID and CreatedAt when unset.
func (r *extractionRepo) Record(ctx context.Context, e *entity.Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	diag := string(e.Diagnostics)
	if diag == "" {
		diag = "{}"
	}

	q, args := entsql.Dialect(r.db.dialect).
		Insert(extractionsTable).
		Columns(extractionColumns...).
		Values(
			e.ID.String(), e.CreatedAt, e.Source, e.ImageSHA256, e.Engine, string(e.Status), e.VIN,
			e.Confidence, e.Manufacturer, e.Strategy, e.CheckDigit, int64(e.CandidateCount),
			e.FailureMessage, e.RawText, e.DurationMS, diag,
		).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extraction record failed", "id", e.ID, "err", err)
		return fmt.Errorf("%w: insert extraction: %v", common.ErrDatabase, err)
	}
	r.log.Debug("extraction recorded", "id", e.ID, "status", e.Status, "vin", e.VIN)
	return nil
}

func (r *extractionRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error) {
	q, args := entsql.Dialect(r.db.dialect).
		Select(extractionColumns...).
		From(entsql.Table(extractionsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	out, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: extraction %s", common.ErrNotFound, id)
	}
	return out[0], nil
}

// ListRecent returns up to limit rows, newest first. limit <= 0 returns everything.
func (r *extractionRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Extraction, error) {
	sel := entsql.Dialect(r.db.dialect).
		Select(extractionColumns...).
		From(entsql.Table(extractionsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()
	return r.query(ctx, q, args)
}

func (r *extractionRepo) query(ctx context.Context, q string, args []any) ([]*entity.Extraction, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.log.Error("extraction query failed", "err", err)
		return nil, fmt.Errorf("%w: query extractions: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Extraction
	for rows.Next() {
		var (
			e                    entity.Extraction
			id, status, diag     string
			createdAt            any
			candidates, duration int64
		)
		if err := rows.Scan(
			&id, &createdAt, &e.Source, &e.ImageSHA256, &e.Engine, &status, &e.VIN, &e.Confidence,
			&e.Manufacturer, &e.Strategy, &e.CheckDigit, &candidates, &e.FailureMessage,
			&e.RawText, &duration, &diag,
		); err != nil {
			return nil, fmt.Errorf("%w: scan extraction: %v", common.ErrDatabase, err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: bad extraction id %q: %v", common.ErrDatabase, id, err)
		}
		ts, err := asTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: extraction %s: %v", common.ErrDatabase, id, err)
		}
		e.ID = parsed
		e.CreatedAt = ts
		e.Status = constants.ExtractionStatus(status)
		e.CandidateCount = int(candidates)
		e.DurationMS = duration
		e.Diagnostics = json.RawMessage(diag)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate extractions: %v", common.ErrDatabase, err)
	}
	return out, nil
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// asTime accepts the representations drivers hand back for timestamp columns.
func asTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
	}
	for _, layout := range sqliteTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", s)
}
