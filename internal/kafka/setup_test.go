package kafka

import (
	"context"
	"io"
	"testing"

	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
)

func TestValidateBrokerAddress(t *testing.T) {
	assert.NoError(t, ValidateBrokerAddress("localhost:9092"))
	assert.NoError(t, ValidateBrokerAddress(" kafka:29092 "))
	assert.Error(t, ValidateBrokerAddress(""))
	assert.Error(t, ValidateBrokerAddress("localhost"))
	assert.Error(t, ValidateBrokerAddress("localhost:abc"))
}

func TestEnsureTopic_RequiresBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), NewConfig(nil, "vip.subscriptions"), logger.NewWithWriter(logger.ERROR, io.Discard))
	assert.Error(t, err)
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := NewSaramaConfig(NewConfig([]string{"localhost:9092"}, "vip.subscriptions"))

	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.NoError(t, cfg.Validate())
}
