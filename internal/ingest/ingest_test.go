package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vinscan/internal/ingest"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.JPG"))
	touch(t, filepath.Join(root, "a.png"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.heic"))
	touch(t, filepath.Join(root, ".cache", "d.jpg"))
	touch(t, filepath.Join(root, ".hidden.jpg"))

	paths, errs, stats, err := ingest.ScanDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, []string{
		filepath.Join(root, "a.png"),
		filepath.Join(root, "b.JPG"),
		filepath.Join(root, "sub", "c.heic"),
	}, paths)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(4), stats.Scanned)

	all, _, _, err := ingest.ScanDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestScanDirectoryErrors(t *testing.T) {
	_, _, _, err := ingest.ScanDirectory(context.Background(), " ", false)
	assert.Error(t, err)

	_, _, _, err = ingest.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	_, _, _, err = ingest.ScanDirectory(ctx, root, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "channel closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.jpg")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, receive(t, events))

	touch(t, filepath.Join(root, "ignored.txt"))
	fresh := filepath.Join(root, "fresh.png")
	touch(t, fresh)
	assert.Equal(t, fresh, receive(t, events))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	_, ok := <-errs
	assert.False(t, ok)
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := ingest.StartWatcher(context.Background(), ingest.WatchConfig{}, nil)
	assert.Error(t, err)
}
