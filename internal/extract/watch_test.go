package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, dir string) *WatchExtractor {
	t.Helper()
	w, err := NewWatchExtractor(dir, false, 100*time.Millisecond, slog.Default())
	require.NoError(t, err)
	w.settle = 20 * time.Millisecond
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWatchExtractor_EnqueuesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.nc"))

	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	jobs, err := w.ExtractBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, filepath.Join(dir, "a.nc"), jobs[0].InputPath)
}

func TestWatchExtractor_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.nc"), []byte("payload"), 0o644))

	jobs, err := w.ExtractBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, filepath.Join(dir, "b.nc"), jobs[0].InputPath)
}

func TestWatchExtractor_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.tmp"), []byte("x"), 0o644))

	_, err := w.ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchExtractor_DeduplicatesEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.nc")
	touch(t, path)

	w := newTestWatcher(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go w.Start(ctx)

	// Rewriting an already-seen product must not yield a second job.
	require.NoError(t, os.WriteFile(path, []byte("again"), 0o644))

	jobs, err := w.ExtractBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
