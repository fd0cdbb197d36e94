package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/couchcryptid/shelter-routing-service/internal/config"
	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes route events to the sink topic. Messages are keyed by
// request id and hash-balanced, so repeated requests land on one partition.
type Writer struct {
	producer *kafkago.Writer
	logger   *slog.Logger
}

// NewWriter creates a producer that waits for all in-sync replicas.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return &Writer{
		producer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaSinkTopic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
		},
		logger: logger,
	}
}

// LoadBatch writes all events in one call. Either every event is accepted or
// the error is returned and the caller retries the whole batch.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, toMessage(ev))
	}
	if err := w.producer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d route events: %w", len(msgs), err)
	}
	w.logger.Debug("route events published", "count", len(msgs), "topic", w.producer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.producer.Close()
}

// toMessage emits headers in key order.
func toMessage(ev domain.OutputEvent) kafkago.Message {
	msg := kafkago.Message{Key: ev.Key, Value: ev.Value}
	for _, k := range slices.Sorted(maps.Keys(ev.Headers)) {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(ev.Headers[k])})
	}
	return msg
}
