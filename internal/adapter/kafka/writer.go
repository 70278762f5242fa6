package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/eonet-report/internal/config"
	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes normalized rows to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured row topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every row and writes them in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, runID uuid.UUID, month string, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(runID, month, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("rows published", "topic", w.writer.Topic, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Row into a Kafka message keyed by event id.
func serializeToMessage(runID uuid.UUID, month string, row domain.Row) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", row.EventID, err)
	}
	return kafkago.Message{
		Key:   []byte(row.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID.String())},
			{Key: "target_month", Value: []byte(month)},
			{Key: "category_id", Value: []byte(strconv.FormatInt(row.CategoryID, 10))},
		},
	}, nil
}
