package repository

import (
	"context"

	"EnsembleView/internal/domain/models"
	drepo "EnsembleView/internal/domain/repository"
	pkgkafka "EnsembleView/pkg/kafka"
)

// SnapshotProducer is the subset of the kafka producer used here.
type SnapshotProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaSnapshotPublisher publishes entity snapshots keyed by ticker.
type KafkaSnapshotPublisher struct {
	producer SnapshotProducer
	topic    string
}

func NewKafkaSnapshotPublisher(producer SnapshotProducer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s models.Snapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Metrics.Ticker), s)
}

func (p *KafkaSnapshotPublisher) PublishBatch(ctx context.Context, snaps []models.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(snaps))
	for i, s := range snaps {
		msgs[i] = pkgkafka.Message{Key: []byte(s.Metrics.Ticker), Value: s}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ drepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
