package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts a HEIC/HEIF file to PNG.
// converter: "heif-convert" | "magick" | "sips".
// If cacheDir and hashHex are non-empty the PNG is persisted (and reused) at
//
//	{cacheDir}/{hashHex}.png
//
// Returns (outPath, warnings, cleanup, err). cleanup is nil when the cached file is returned.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
	hashHex string,
) (string, []string, func(), error) {
	useCache := cacheDir != "" && hashHex != ""
	if useCache {
		cached := filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "vinscan-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "plate.png")

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set ocr.heic_converter to one of: heif-convert | magick | sips")
	}
	if _, errb, err2 := r.Run(ctx, converter, logger, args...); err2 != nil {
		return "", []string{string(errb)}, cleanup, fmt.Errorf("%s failed: %w", converter, err2)
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}

	if !useCache {
		return out, nil, cleanup, nil
	}

	cached := filepath.Join(cacheDir, hashHex+".png")
	defer cleanup()
	// rename fails across devices (EXDEV); copy instead
	if err := os.Rename(out, cached); err != nil {
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			logger.Debug("cached heic->png already present", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := copyFile(out, cached); err != nil {
			return "", nil, nil, err
		}
	}
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
