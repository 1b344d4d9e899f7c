// Package kafka carries the engine's event transport: catalog/profile change
// notifications in, eligibility events out.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/events"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// Producer handles Kafka event emission.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer.
func NewProducer(cfg ProducerConfig, logger *zap.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger.With(zap.String("component", "kafka-producer")),
		topic:  cfg.Topic,
	}
}

// Close closes the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishNewlyEligible publishes a newly-eligible event keyed by profile so
// per-profile ordering is preserved for downstream alerting.
func (p *Producer) PublishNewlyEligible(ctx context.Context, event *events.NewlyEligibleEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishNewlyEligible")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ProfileID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.TypeNewlyEligible)},
			{Key: "scheme_id", Value: []byte(event.SchemeID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish newly-eligible event",
			zap.String("profile_id", event.ProfileID), zap.String("scheme_id", event.SchemeID), zap.Error(err))
		return err
	}

	p.logger.Debug("published newly-eligible event",
		zap.String("profile_id", event.ProfileID), zap.String("scheme_id", event.SchemeID))
	return nil
}
