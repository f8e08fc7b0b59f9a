package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
	"github.com/umr-lops/asar-seastate-processor/internal/observability"
)

// BatchExtractor reads up to batchSize processing jobs from the source.
// Finite sources return domain.ErrNoMoreJobs once exhausted.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.Job, error)
}

// Transformer turns a processing job into a finished Level-2P result.
type Transformer interface {
	Transform(ctx context.Context, job domain.Job) (domain.L2Result, error)
}

// BatchLoader persists multiple results.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.L2Result) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	failed      atomic.Int64
	processed   atomic.Int64
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has produced at least one
// product, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any products yet")
	}
	return nil
}

// FailedCount returns the number of jobs whose retrieval failed.
func (p *Pipeline) FailedCount() int64 { return p.failed.Load() }

// ProcessedCount returns the number of products successfully loaded.
func (p *Pipeline) ProcessedCount() int64 { return p.processed.Load() }

// Run executes the batch ETL loop until the context is cancelled or a finite
// extractor runs dry.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during source or
	// storage outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		cont, err := p.processBatch(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. The bool result is
// false when the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	start := time.Now()

	jobs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if errors.Is(err, domain.ErrNoMoreJobs) {
			p.logger.Info("all inputs processed", "products", p.processed.Load(), "failed", p.failed.Load())
			return false, nil
		}
		if ctx.Err() != nil {
			return false, nil
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	if len(jobs) == 0 {
		return ctx.Err() == nil, nil
	}

	p.metrics.BatchSize.Observe(float64(len(jobs)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.transformAndLoad(ctx, jobs, backoff, maxBackoff)
	if !ok {
		return false, nil
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true, nil
}

// transformAndLoad transforms each job in the batch, loads the successes,
// and commits offsets. Returns the number of successfully loaded products
// and false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, jobs []domain.Job, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	results := make([]domain.L2Result, 0, len(jobs))
	successfulJobs := make([]domain.Job, 0, len(jobs))

	for _, job := range jobs {
		result, err := p.transformer.Transform(ctx, job)
		if err != nil {
			if errors.Is(err, domain.ErrOutputExists) {
				p.logger.Info("output exists, skipping", "input", job.InputPath)
				p.metrics.ProductsSkipped.Inc()
				p.commitJob(ctx, job)
				continue
			}
			p.logger.Warn("retrieval failed, skipping input",
				"error", err,
				"input", job.InputPath,
			)
			p.metrics.ProductsFailed.Inc()
			p.failed.Add(1)
			p.commitJob(ctx, job)
			continue
		}
		if result.LandOnly {
			p.metrics.LandOnlyProducts.Inc()
		}
		results = append(results, result)
		successfulJobs = append(successfulJobs, job)
	}

	if len(results) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, results); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ProductsProcessed.Add(float64(len(results)))
	p.processed.Add(int64(len(results)))

	for _, job := range successfulJobs {
		p.commitJob(ctx, job)
	}

	return len(results), true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should
// stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitJob commits the job's source offset if a commit function is
// available.
func (p *Pipeline) commitJob(ctx context.Context, job domain.Job) {
	if job.Commit == nil {
		return
	}
	if err := job.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", job.Topic, "partition", job.Partition, "offset", job.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
