package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// WatchExtractor yields jobs for Level-1 products as they appear in a
// directory. It implements pipeline.BatchExtractor and never reports
// domain.ErrNoMoreJobs.
type WatchExtractor struct {
	watcher       *fsnotify.Watcher
	jobs          chan domain.Job
	logger        *slog.Logger
	overwrite     bool
	flushInterval time.Duration
	settle        time.Duration

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatchExtractor watches dir for incoming .nc products. Existing files
// are enqueued on startup so restarts do not lose work.
func NewWatchExtractor(dir string, overwrite bool, flushInterval time.Duration, logger *slog.Logger) (*WatchExtractor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &WatchExtractor{
		watcher:       watcher,
		jobs:          make(chan domain.Job, 256),
		logger:        logger,
		overwrite:     overwrite,
		flushInterval: flushInterval,
		settle:        2 * time.Second,
		seen:          make(map[string]bool),
	}

	existing, err := listDirectory(dir)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	for _, p := range existing {
		w.enqueue(p)
	}
	return w, nil
}

// Start runs the event loop until the context ends. Run it in its own
// goroutine.
func (w *WatchExtractor) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".nc") {
				continue
			}
			go w.settleAndEnqueue(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// ExtractBatch blocks for the first discovered product, then keeps
// accumulating until the batch fills or the flush interval elapses.
func (w *WatchExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0, batchSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case job := <-w.jobs:
		jobs = append(jobs, job)
	}

	timer := time.NewTimer(w.flushInterval)
	defer timer.Stop()
	for len(jobs) < batchSize {
		select {
		case <-ctx.Done():
			return jobs, nil
		case <-timer.C:
			return jobs, nil
		case job := <-w.jobs:
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (w *WatchExtractor) Close() error {
	return w.watcher.Close()
}

// settleAndEnqueue waits until the file size stops changing before queueing
// the job. Products arrive by copy or rsync and must not be read half
// written.
func (w *WatchExtractor) settleAndEnqueue(ctx context.Context, path string) {
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				w.logger.Warn("stat incoming product failed", "path", path, "error", err)
			}
			return
		}
		if info.Size() == lastSize {
			break
		}
		lastSize = info.Size()
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.settle):
		}
	}
	w.enqueue(path)
}

func (w *WatchExtractor) enqueue(path string) {
	w.mu.Lock()
	if w.seen[path] {
		w.mu.Unlock()
		return
	}
	w.seen[path] = true
	w.mu.Unlock()

	select {
	case w.jobs <- domain.Job{InputPath: path, Overwrite: w.overwrite, Received: time.Now()}:
	default:
		w.logger.Warn("job queue full, dropping product", "path", path)
		w.mu.Lock()
		delete(w.seen, path)
		w.mu.Unlock()
	}
}
