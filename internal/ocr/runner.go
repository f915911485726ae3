package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external tool (tesseract, a HEIC converter). Tests swap it for a stub.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	err := cmd.Run()
	ms := time.Since(start).Milliseconds()
	switch {
	case errors.Is(err, exec.ErrNotFound):
		logger.Error("exec.missing", "cmd", name)
		return nil, nil, fmt.Errorf("%s is not installed or not on PATH: %w", name, err)
	case err != nil:
		logger.Error("exec.failed", "cmd", name, "args", args, "duration_ms", ms,
			"error", err, "stderr", truncate(stderr.String(), 8<<10))
	default:
		logger.Debug("exec.ok", "cmd", name, "duration_ms", ms, "stdout_bytes", stdout.Len())
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
