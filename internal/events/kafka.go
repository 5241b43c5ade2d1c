package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/platform/config"
)

// KafkaPublisher produces lifecycle events with franz-go. Records are keyed
// by donation id so events for one donation stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a lifecycle event producer.
func NewKafka(cfg config.Events, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaPublisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, kind string, donation *models.Donation) {
	value, err := json.Marshal(envelope(kind, donation))
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal lifecycle event", "kind", kind, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(donation.ID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish lifecycle event",
				"kind", kind, "donation_id", donation.ID, "error", err)
		}
	})
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
