package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher mirrors audit records to a Kafka topic for downstream
// consumers (SIEM, analytics). Production is fire-and-forget: delivery
// failures are logged, never surfaced to the request path. The store remains
// the durable sink.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the given brokers (comma separated).
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends one record keyed by tag id so a tag's trail stays ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, record Record) {
	payload, err := json.Marshal(record)
	if err != nil {
		p.logger.WarnContext(ctx, "audit publish marshal failed", "error", err.Error())
		return
	}

	p.client.Produce(ctx, &kgo.Record{Key: []byte(record.TagID), Value: payload},
		func(_ *kgo.Record, err error) {
			if err != nil {
				p.logger.Warn("audit publish failed",
					"request_id", record.RequestID,
					"error", err.Error(),
				)
			}
		})
}

// Close flushes outstanding produces and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return err
	}
	p.client.Close()
	return nil
}
