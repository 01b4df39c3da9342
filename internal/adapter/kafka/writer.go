package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/site-fueling-service/internal/config"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes every site of a committed snapshot to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
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

// Publish writes one message per site in a single WriteMessages call. Sites
// are keyed by id so a compacted topic keeps the latest state of each row.
func (w *Writer) Publish(ctx context.Context, snap *pipeline.Snapshot) error {
	sites := snap.All()
	if len(sites) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(sites))
	for i := range sites {
		msg, err := serializeToMessage(sites[i], snap)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.Generation, err)
	}
	w.logger.Debug("snapshot published", "generation", snap.Generation, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Site into a Kafka message.
func serializeToMessage(site domain.Site, snap *pipeline.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(site)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize site %d: %w", site.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(site.ID)),
		Value: data,
		Time:  snap.FetchedAt,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(site.Category)},
			{Key: "generation", Value: []byte(strconv.FormatUint(snap.Generation, 10))},
			{Key: "source", Value: []byte(snap.Source)},
			{Key: "fetched_at", Value: []byte(snap.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
