package domain

import (
	"context"
	"errors"
	"time"
)

// ErrOutputExists marks a job whose output product already exists and
// overwriting is disabled. The pipeline counts these as skips, not failures.
var ErrOutputExists = errors.New("output product already exists")

// ErrNoMoreJobs is returned by finite extractors (listings, directories) once
// every input has been yielded. The pipeline shuts down cleanly on it.
var ErrNoMoreJobs = errors.New("no more jobs")

// Job is one processing request: turn the Level-1 product at InputPath into a
// Level-2P product.
type Job struct {
	InputPath string
	Overwrite bool

	// Source bookkeeping, set by queue-backed extractors.
	Topic     string
	Partition int
	Offset    int64
	Received  time.Time
	Commit    func(ctx context.Context) error
}

// L2Result is a finished retrieval: the formatted Level-2P dataset and where
// it must be persisted.
type L2Result struct {
	Product    *Dataset
	InputPath  string
	OutputPath string
	TrackID    string
	LandOnly   bool
	Duration   time.Duration
}
