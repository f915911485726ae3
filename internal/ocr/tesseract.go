package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

const TesseractName = "tesseract"

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"

	// PSM 11 (sparse text) suits plates and door-jamb stickers better than block modes.
	PSM int
	OEM int // 1 = LSTM; leave 0 to use default

	TessdataDir      string
	HeicConverter    string
	ArtifactCacheDir string
}

// Tesseract runs the tesseract CLI in TSV mode and groups words into lines.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type TesseractOption func(*Tesseract)

// WithRunner replaces the exec runner; used by tests.
func WithRunner(r Runner) TesseractOption {
	return func(t *Tesseract) { t.runner = r }
}

func NewTesseract(cfg Config, logger *slog.Logger, opts ...TesseractOption) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	t := &Tesseract{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tesseract) Name() string { return TesseractName }

func (t *Tesseract) Recognize(ctx context.Context, img media.Image) ([]vin.TextBlock, error) {
	start := time.Now()
	logger := common.LoggerWith(ctx, t.logger).With("engine", TesseractName)

	path, cleanup, err := stageImage(img)
	if err != nil {
		return nil, fmt.Errorf("stage image: %w", err)
	}
	defer cleanup()

	if img.IsHEIC() {
		out, warns, c, err := convertHEICtoPNG(ctx, t.runner, logger, t.cfg.HeicConverter, path, t.cfg.ArtifactCacheDir, img.Hash())
		if c != nil {
			defer c()
		}
		if err != nil {
			logger.Error("heic conversion failed", "error", err, "warnings", warns)
			return nil, fmt.Errorf("%w: heic conversion: %v", common.ErrUnavailable, err)
		}
		path = out
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, logger, t.args(path)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tesseract: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: tesseract: %v: %s", common.ErrUnavailable, err, truncate(string(errb), 512))
	}

	blocks := parseTSV(string(out))
	logger.Debug("ocr.tesseract.ok", "lines", len(blocks), "duration_ms", time.Since(start).Milliseconds())
	return blocks, nil
}

// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D] tsv
func (t *Tesseract) args(path string) []string {
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

func stageImage(img media.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "vinscan-*."+img.Ext)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(img.Data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

var _ Engine = (*Tesseract)(nil)
