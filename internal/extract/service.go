package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
	"github.com/joseph-ayodele/vinscan/internal/ocr"
	"github.com/joseph-ayodele/vinscan/internal/repository"
	"github.com/joseph-ayodele/vinscan/internal/utils"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

const (
	DefaultMaxImageBytes int64 = 10 << 20
	DefaultOCRTimeout          = 30 * time.Second
)

// Options bound the work done per request.
type Options struct {
	MaxImageBytes int64
	OCRTimeout    time.Duration
	// PrefixTable overrides the manufacturer table; ignored when DisablePrefixBonus is set.
	PrefixTable        vin.PrefixTable
	DisablePrefixBonus bool
}

// OptionsFrom maps the extraction config section onto Options.
func OptionsFrom(c common.ExtractionConfig) Options {
	return Options{
		MaxImageBytes:      c.MaxImageBytes,
		OCRTimeout:         c.OCRTimeout,
		DisablePrefixBonus: !c.PrefixBonus,
	}
}

// Service runs image -> OCR -> VIN pipeline. Outcomes, including failures, are
// returned as vin.Result values.
type Service struct {
	engine   ocr.Engine
	pipeline *vin.Pipeline
	opts     Options
	records  repository.ExtractionRepository
	logger   *slog.Logger
}

type ServiceOption func(*Service)

// WithRecorder stores one audit row per extraction. Recording failures are logged,
// never surfaced in the Result.
func WithRecorder(r repository.ExtractionRepository) ServiceOption {
	return func(s *Service) { s.records = r }
}

func NewService(engine ocr.Engine, opts Options, logger *slog.Logger, svcOpts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = DefaultOCRTimeout
	}

	var pipeOpts []vin.Option
	switch {
	case opts.DisablePrefixBonus:
		pipeOpts = append(pipeOpts, vin.WithPrefixTable(vin.NoPrefixTable))
	case opts.PrefixTable != nil:
		pipeOpts = append(pipeOpts, vin.WithPrefixTable(opts.PrefixTable))
	}

	s := &Service{
		engine:   engine,
		pipeline: vin.NewPipeline(pipeOpts...),
		opts:     opts,
		logger:   logger,
	}
	for _, o := range svcOpts {
		o(s)
	}
	return s
}

func (s *Service) EngineName() string { return s.engine.Name() }

// Extract accepts raw image bytes or a base64 data URL.
func (s *Service) Extract(ctx context.Context, payload []byte) vin.Result {
	ctx, _ = common.EnsureRequestID(ctx)
	start := time.Now()

	img, err := media.Decode(payload, s.opts.MaxImageBytes)
	if err != nil {
		res := vin.InputFailure(inputMessage(err))
		s.finish(ctx, res, "", start)
		return res
	}
	return s.ExtractImage(ctx, img)
}

// ExtractFile reads an image from disk under the same limits as Extract.
func (s *Service) ExtractFile(ctx context.Context, path string) vin.Result {
	ctx, _ = common.EnsureRequestID(ctx)
	if common.SourceFromContext(ctx) == "" {
		ctx = common.WithSource(ctx, path)
	}
	start := time.Now()

	img, err := media.ReadFile(path, s.opts.MaxImageBytes)
	if err != nil {
		res := vin.InputFailure(inputMessage(err))
		s.finish(ctx, res, "", start)
		return res
	}
	return s.ExtractImage(ctx, img)
}

// ExtractImage runs OCR on an already decoded image.
func (s *Service) ExtractImage(ctx context.Context, img media.Image) vin.Result {
	ctx, _ = common.EnsureRequestID(ctx)
	start := time.Now()
	logger := common.LoggerWith(ctx, s.logger)
	hash := img.Hash()

	ocrCtx, cancel := context.WithTimeout(ctx, s.opts.OCRTimeout)
	defer cancel()

	blocks, err := s.engine.Recognize(ocrCtx, img)
	if err != nil {
		var res vin.Result
		switch {
		case errors.Is(err, common.ErrInvalidInput):
			logger.Warn("extract.ocr.rejected", "engine", s.engine.Name(), "error", err)
			res = vin.InputFailure(inputMessage(err))
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			logger.Error("extract.ocr.timeout", "engine", s.engine.Name(), "timeout", s.opts.OCRTimeout)
			res = vin.ServiceFailure(fmt.Sprintf("text recognition timed out after %s", s.opts.OCRTimeout))
		case ctx.Err() != nil:
			logger.Warn("extract.cancelled", "error", ctx.Err())
			res = vin.ServiceFailure("request cancelled before text recognition finished")
		default:
			logger.Error("extract.ocr.failed", "engine", s.engine.Name(), "error", err)
			res = vin.ServiceFailure("text recognition is unavailable")
		}
		s.finish(ctx, res, hash, start)
		return res
	}

	res := s.pipeline.Run(blocks)
	s.finish(ctx, res, hash, start)
	return res
}

func (s *Service) finish(ctx context.Context, res vin.Result, hash string, start time.Time) {
	dur := time.Since(start)
	logger := common.LoggerWith(ctx, s.logger)
	status := utils.StatusOf(res)
	if res.Found {
		logger.Info("extract.ok", "vin", res.VIN, "confidence", res.Confidence,
			"strategy", res.Diagnostics.Strategy, "runners_up", len(res.Diagnostics.RunnersUp),
			"duration_ms", dur.Milliseconds())
	} else {
		logger.Info("extract.miss", "status", status, "candidates", res.Diagnostics.CandidateCount,
			"duration_ms", dur.Milliseconds())
	}

	if s.records == nil {
		return
	}
	row := utils.ToExtraction(res, utils.ExtractionMeta{
		Source:      sourceOf(ctx),
		ImageSHA256: hash,
		Engine:      s.engine.Name(),
		StartedAt:   start,
		Duration:    dur,
	})
	// the caller may already be gone; the audit row should still land
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.records.Record(recCtx, row); err != nil {
		logger.Warn("extract.record.failed", "error", err)
	}
}

func sourceOf(ctx context.Context) string {
	if src := common.SourceFromContext(ctx); src != "" {
		return src
	}
	return "api"
}

// inputMessage strips the sentinel prefix so the caller sees only the reason.
func inputMessage(err error) string {
	msg := err.Error()
	prefix := common.ErrInvalidInput.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// CheckVIN validates a typed VIN against the shared shape rules.
func CheckVIN(text string) bool { return vin.IsValidShape(text) }

// FindVIN locates a VIN inside a free-text message.
func FindVIN(message string) (string, bool) { return vin.FindInText(message) }
