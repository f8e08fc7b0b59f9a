// Package extract provides job sources for the pipeline: finite listings for
// batch reprocessing and a directory watcher for near-real-time intake.
package extract

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// ListingExtractor yields jobs from a fixed set of input paths, then reports
// domain.ErrNoMoreJobs. It implements pipeline.BatchExtractor.
type ListingExtractor struct {
	mu        sync.Mutex
	paths     []string
	next      int
	overwrite bool
}

// NewListingExtractor resolves an input argument into a job source. The
// argument may be a single Level-1 product, a directory of products, or a
// .txt listing with one path per line (# starts a comment).
func NewListingExtractor(input string, overwrite bool) (*ListingExtractor, error) {
	paths, err := resolveInput(input)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input products found in %s", input)
	}
	return &ListingExtractor{paths: paths, overwrite: overwrite}, nil
}

// Len returns the total number of jobs the extractor will yield.
func (e *ListingExtractor) Len() int {
	return len(e.paths)
}

// ExtractBatch returns the next batch of jobs, or domain.ErrNoMoreJobs once
// the listing is exhausted.
func (e *ListingExtractor) ExtractBatch(_ context.Context, batchSize int) ([]domain.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.next >= len(e.paths) {
		return nil, domain.ErrNoMoreJobs
	}
	end := e.next + batchSize
	if end > len(e.paths) {
		end = len(e.paths)
	}
	jobs := make([]domain.Job, 0, end-e.next)
	for _, p := range e.paths[e.next:end] {
		jobs = append(jobs, domain.Job{InputPath: p, Overwrite: e.overwrite})
	}
	e.next = end
	return jobs, nil
}

func resolveInput(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	switch {
	case info.IsDir():
		return listDirectory(input)
	case strings.HasSuffix(input, ".txt"):
		return readListing(input)
	default:
		return []string{input}, nil
	}
}

// listDirectory walks a directory tree collecting .nc files in sorted order.
func listDirectory(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".nc") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// readListing reads one input path per line. Blank lines and lines starting
// with # are skipped.
func readListing(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return paths, nil
}
