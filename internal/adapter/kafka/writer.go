package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/location-search/internal/config"
	"github.com/couchcryptid/location-search/internal/domain"
)

// Message header keys on the location topic.
const (
	HeaderSessionID  = "session_id"
	HeaderResolvedAt = "resolved_at"
)

// Writer produces selected locations to a Kafka topic.
// It implements publish.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured location topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLocationTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the locations in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, locations []domain.SelectedLocation) error {
	if len(locations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(locations))
	for i := range locations {
		msg, err := serializeToMessage(locations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d locations: %w", len(msgs), err)
	}
	w.logger.Debug("locations written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SelectedLocation into a Kafka message keyed
// by place ID, so selections of the same place share a partition.
func serializeToMessage(loc domain.SelectedLocation) (kafkago.Message, error) {
	data, err := json.Marshal(loc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(loc.PlaceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderSessionID, Value: []byte(loc.SessionID)},
			{Key: HeaderResolvedAt, Value: []byte(loc.ResolvedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
