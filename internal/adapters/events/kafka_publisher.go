package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vendora/marketplace-ledger/internal/contracts"
)

// KafkaPublisher writes event envelopes keyed by partition key, one
// topic per stream class. RequireAll acks keep the ledger's money
// events durable before the outbox marks them sent.
type KafkaPublisher struct {
	writer         *kafka.Writer
	domainTopic    string
	analyticsTopic string
	dlqTopic       string
}

func NewKafkaPublisher(brokers []string, domainTopic, analyticsTopic, dlqTopic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if domainTopic == "" {
		return nil, fmt.Errorf("kafka publisher requires a domain topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		domainTopic:    domainTopic,
		analyticsTopic: analyticsTopic,
		dlqTopic:       dlqTopic,
	}, nil
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	return p.publish(ctx, p.domainTopic, event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error {
	topic := p.analyticsTopic
	if topic == "" {
		topic = p.domainTopic
	}
	return p.publish(ctx, topic, event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	if p.dlqTopic == "" {
		return nil
	}
	return p.publish(ctx, p.dlqTopic, record.OriginalEvent.EventID, record)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
