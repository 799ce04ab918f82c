package forget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"kompas/internal/platform/config"
)

// KafkaPublisher writes erasure jobs to a Kafka topic, keyed by the hashed
// company identifier so all jobs for one company land on one partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the configured brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.ForgetTopic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: cfg.ForgetTopic, logger: logger}, nil
}

// Enqueue publishes one job and waits for broker acknowledgement.
func (p *KafkaPublisher) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal forget job: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(job.CompanyIDHash),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish forget job: %w", err)
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "forget job queued", "job_id", job.ID, "company_id_hash", job.CompanyIDHash)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
