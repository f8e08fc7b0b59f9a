package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/umr-lops/asar-seastate-processor/internal/config"
	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// announcement is the wire format of a finished-product notification on the
// products topic.
type announcement struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	TrackID    string `json:"track_id"`
	LandOnly   bool   `json:"land_only"`
	DurationMS int64  `json:"duration_ms"`
}

// Writer publishes product announcements to the products topic.
// It implements pipeline.Announcer.
type Writer struct {
	writer    *kafkago.Writer
	productID string
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured products topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaProductsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, productID: cfg.ProductID, logger: logger}
}

// Announce publishes all results in a single WriteMessages call.
func (w *Writer) Announce(ctx context.Context, results []domain.L2Result) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := w.serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a result into a Kafka message keyed by track
// ID.
func (w *Writer) serializeToMessage(r domain.L2Result) (kafkago.Message, error) {
	data, err := json.Marshal(announcement{
		InputPath:  r.InputPath,
		OutputPath: r.OutputPath,
		TrackID:    r.TrackID,
		LandOnly:   r.LandOnly,
		DurationMS: r.Duration.Milliseconds(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize announcement: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.TrackID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "product_id", Value: []byte(w.productID)},
			{Key: "processed_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
