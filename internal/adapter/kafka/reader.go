package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// jobMessage is the wire format of a processing request on the jobs topic.
// ProductID is optional; when set, daemons configured for a different product
// ignore the job.
type jobMessage struct {
	InputPath string `json:"input_path"`
	ProductID string `json:"product_id,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// Reader consumes processing jobs from the jobs topic as part of a consumer
// group. It implements pipeline.BatchExtractor. Offsets are committed per
// job through Job.Commit once the product is persisted.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	productID     string
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the configured jobs topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaJobsTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	return &Reader{reader: r, logger: logger, productID: cfg.ProductID, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize jobs. The first fetch blocks until a
// message arrives or the context ends; subsequent fetches stop accumulating
// after the flush interval so a trickle of jobs still flows.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0, batchSize)

	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	if job, ok := r.toJob(msg); ok {
		jobs = append(jobs, job)
	}

	deadline, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()
	for len(jobs) < batchSize {
		msg, err := r.reader.FetchMessage(deadline)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			r.logger.Warn("fetch message failed mid-batch", "error", err)
			break
		}
		if job, ok := r.toJob(msg); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// toJob decodes a message into a Job. Malformed messages are committed and
// dropped so they do not wedge the partition.
func (r *Reader) toJob(msg kafkago.Message) (domain.Job, bool) {
	var jm jobMessage
	if err := json.Unmarshal(msg.Value, &jm); err != nil || jm.InputPath == "" {
		r.logger.Warn("dropping malformed job message",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		if err := r.reader.CommitMessages(context.Background(), msg); err != nil {
			r.logger.Warn("commit malformed message failed", "error", err)
		}
		return domain.Job{}, false
	}
	if jm.ProductID != "" && !strings.EqualFold(jm.ProductID, r.productID) {
		r.logger.Debug("skipping job for another product",
			"job_product_id", jm.ProductID, "offset", msg.Offset)
		if err := r.reader.CommitMessages(context.Background(), msg); err != nil {
			r.logger.Warn("commit skipped message failed", "error", err)
		}
		return domain.Job{}, false
	}
	return domain.Job{
		InputPath: jm.InputPath,
		Overwrite: jm.Overwrite,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Received:  time.Now(),
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}, true
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
