package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/rshade/stagehand/internal/config"
)

// Kafka message header names.
const (
	HeaderDocumentType = "stagehand-document-type"
	HeaderBatchSize    = "stagehand-batch-size"
)

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every document as one message keyed by its location.
// Consumers replace their view of a type when they see a new batch.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink creates a sink writing to cfg.Topic.
func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka sink requires brokers and topic", config.ErrInvalidConfig)
	}
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}), nil
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Replace implements Sink.
func (k *KafkaSink) Replace(ctx context.Context, docType string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	size := fmt.Sprint(len(docs))
	msgs := make([]kafka.Message, 0, len(docs))
	for _, d := range docs {
		value, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encoding document %s: %w", d.Location(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(d.Location()),
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderDocumentType, Value: []byte(docType)},
				{Key: HeaderBatchSize, Value: []byte(size)},
			},
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d %s documents: %w", len(msgs), docType, err)
	}
	return nil
}

// Close implements Sink.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
