package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/IBM/sarama"
)

// EventPublisher публикует события жизненного цикла подписки
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SubscriptionEvent) error
	Close() error
}

type kafkaEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaEventPublisher создает публикатор поверх синхронного продюсера
func NewKafkaEventPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger) EventPublisher {
	return &kafkaEventPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("kafka"),
	}
}

// Publish отправляет событие; ключ сообщения это ID покупателя
func (p *kafkaEventPublisher) Publish(ctx context.Context, event domain.SubscriptionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.SubscriberID, 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		},
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("Failed to publish %s for subscriber %d: %v", event.Type, event.SubscriberID, err)
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.log.Debug("Published %s for subscriber %d (partition=%d offset=%d)",
		event.Type, event.SubscriberID, partition, offset)
	return nil
}

// Close закрывает продюсер
func (p *kafkaEventPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher используется, когда Kafka не настроена
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, domain.SubscriptionEvent) error { return nil }
func (noopPublisher) Close() error                                            { return nil }
