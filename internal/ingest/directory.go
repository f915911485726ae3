package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDirectory walks root and returns the image files under it in lexical order.
// Unreadable entries are reported in errs and the walk continues.
func ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]string, []ScanError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		paths []string
		errs  []ScanError
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			errs = append(errs, ScanError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, errs, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, errs, stats, nil
}
