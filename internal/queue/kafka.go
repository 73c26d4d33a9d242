package queue

import (
	"context"
	"errors"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaConsumer adapts kafka-go's Reader to Consumer. Grounded on
// internal/common/mq/kafka.go's reader construction (balanced group
// consumer, manual commit after successful handling).
type KafkaConsumer struct {
	reader *kafka.Reader
}

// NewKafkaConsumer joins groupID as a consumer group member on topic.
func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
	})}
}

func (c *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		msg := Message{Key: m.Key, Value: m.Value, Headers: headersToMap(m.Headers)}
		if err := handle(ctx, msg); err != nil {
			// Leave the message uncommitted; the broker will redeliver it
			// to this (or another) group member.
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func headersToMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}
