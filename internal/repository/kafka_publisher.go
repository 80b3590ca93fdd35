package repository

import (
	"context"
	"time"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/kafka"
)

// KafkaPublisher emits trade and semaphore events to a Kafka topic. Messages
// are keyed by trade id or asset set so per-entity ordering survives
// partitioning.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

type tradeEvent struct {
	Event     string        `json:"event"`
	Trade     *models.Trade `json:"trade"`
	Timestamp time.Time     `json:"timestamp"`
}

type semaphoreEvent struct {
	Event     string                 `json:"event"`
	State     *models.SemaphoreState `json:"state"`
	Timestamp time.Time              `json:"timestamp"`
}

func (p *KafkaPublisher) PublishTradeEvent(ctx context.Context, event string, t *models.Trade) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.ID), tradeEvent{
		Event:     event,
		Trade:     t,
		Timestamp: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishSemaphore(ctx context.Context, s *models.SemaphoreState) error {
	return p.producer.Publish(ctx, p.topic, []byte("semaphore"), semaphoreEvent{
		Event:     "semaphore_updated",
		State:     s,
		Timestamp: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
