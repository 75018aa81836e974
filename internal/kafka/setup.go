package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	kafkaGo "github.com/segmentio/kafka-go"
)

const (
	topicPartitions  = 3
	topicReplication = 1
	setupTimeout     = 15 * time.Second
)

// ValidateBrokerAddress проверяет формат host:port
func ValidateBrokerAddress(broker string) error {
	broker = strings.TrimSpace(broker)
	if broker == "" {
		return errors.New("kafka broker address is empty")
	}
	_, portStr, err := net.SplitHostPort(broker)
	if err != nil {
		return fmt.Errorf("invalid broker address %s: %w", broker, err)
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid broker port %s: %w", broker, err)
	}
	return nil
}

// EnsureTopic создает топик событий подписки, если его еще нет.
// Уже существующий топик не считается ошибкой.
func EnsureTopic(ctx context.Context, cfg *Config, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka brokers are not configured")
	}
	if err := ValidateBrokerAddress(cfg.Brokers[0]); err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	conn, err := kafkaGo.DialContext(connCtx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(cfg.Topic)
	if err == nil && len(partitions) > 0 {
		log.Debug("Kafka topic %s already exists", cfg.Topic)
		return nil
	}

	// Создавать топики может только контроллер
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller lookup failed: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafkaGo.DialContext(connCtx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("kafka controller connection failed: %w", err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     topicPartitions,
		ReplicationFactor: topicReplication,
	})
	if err != nil && !errors.Is(err, kafkaGo.TopicAlreadyExists) {
		return fmt.Errorf("kafka create topic %s failed: %w", cfg.Topic, err)
	}

	log.Info("Kafka topic %s is ready", cfg.Topic)
	return nil
}
