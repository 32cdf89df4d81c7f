package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tgmarket/order-service/internal/domain"
)

type EventPublisher struct {
	writer *kafka.Writer
	topic  string
}

var _ domain.PublisherPort = (*EventPublisher)(nil)

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

// Publish implements domain.PublisherPort.
func (k *EventPublisher) Publish(topic string, msgs ...domain.Message) error {
	var km []kafka.Message
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  time.Now(),
			Topic: topic,
		})
	}

	return k.writer.WriteMessages(context.Background(), km...)
}

func (k *EventPublisher) PublishOrderCompleted(event OrderCompletedEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return k.Publish(k.topic, domain.Message{Key: []byte(event.BuyerID), Value: v})
}

func (k *EventPublisher) PublishCardEvent(event CardEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return k.Publish(k.topic, domain.Message{Key: []byte(event.UserID), Value: v})
}

func (k *EventPublisher) Close() error {
	return k.writer.Close()
}
