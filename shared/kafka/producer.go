package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
)

// Producer publishes JSON payloads with a synchronous sarama producer.
type Producer struct {
	producer sarama.SyncProducer
}

// NewProducer connects a SyncProducer to brokers. Every send waits for all
// in-sync replicas.
func NewProducer(brokers []string) (*Producer, error) {
	cfg := newSaramaConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Producer{producer: p}, nil
}

// NewProducerWith wraps an existing SyncProducer.
func NewProducerWith(p sarama.SyncProducer) *Producer {
	return &Producer{producer: p}
}

// PublishJSON encodes v and sends it to topic under key.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	log.Debug().Str("topic", topic).Int32("partition", partition).Int64("offset", offset).Msg("published message")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
