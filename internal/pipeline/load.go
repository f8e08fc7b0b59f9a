package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// DatasetWriter persists a dataset as a netCDF product.
type DatasetWriter interface {
	Write(path string, ds *domain.Dataset) error
}

// Announcer publishes finished products to downstream consumers.
type Announcer interface {
	Announce(ctx context.Context, results []domain.L2Result) error
}

// ProductLoader writes Level-2P products to storage and, when an announcer is
// configured, publishes them.
type ProductLoader struct {
	writer    DatasetWriter
	announcer Announcer
	logger    *slog.Logger
}

// NewLoader creates a ProductLoader. announcer may be nil.
func NewLoader(writer DatasetWriter, announcer Announcer, logger *slog.Logger) *ProductLoader {
	return &ProductLoader{writer: writer, announcer: announcer, logger: logger}
}

// LoadBatch writes every product, then announces the batch. Writes are
// atomic and idempotent, so a retried batch rewrites safely.
func (l *ProductLoader) LoadBatch(ctx context.Context, results []domain.L2Result) error {
	for _, r := range results {
		if err := l.writer.Write(r.OutputPath, r.Product); err != nil {
			return fmt.Errorf("write product %s: %w", r.OutputPath, err)
		}
		l.logger.Info("product written",
			"input", r.InputPath,
			"output", r.OutputPath,
			"track_id", r.TrackID,
			"land_only", r.LandOnly,
			"duration", r.Duration,
		)
	}
	if l.announcer != nil {
		if err := l.announcer.Announce(ctx, results); err != nil {
			return fmt.Errorf("announce products: %w", err)
		}
	}
	return nil
}
