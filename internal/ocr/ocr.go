package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

// Engine turns an image into per-line text blocks. Zero blocks is a valid answer.
// Implementations wrap common.ErrUnavailable for upstream failures and
// common.ErrInvalidInput when the engine rejects the image itself.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img media.Image) ([]vin.TextBlock, error)
}

// NewEngine builds the engine selected in cfg.
func NewEngine(cfg common.OCRConfig, logger *slog.Logger) (Engine, error) {
	switch cfg.Engine {
	case "", common.EngineTesseract:
		return NewTesseract(Config{
			Tesseract:        cfg.Tesseract,
			Lang:             cfg.Lang,
			PSM:              cfg.PSM,
			OEM:              cfg.OEM,
			TessdataDir:      cfg.TessdataDir,
			HeicConverter:    cfg.HeicConverter,
			ArtifactCacheDir: cfg.ArtifactCacheDir,
		}, logger), nil
	case common.EngineMistral:
		return NewMistral(MistralConfig{
			APIKey:  cfg.MistralAPIKey,
			BaseURL: cfg.MistralBaseURL,
			Model:   cfg.MistralModel,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown ocr engine %q", common.ErrInvalidInput, cfg.Engine)
	}
}
