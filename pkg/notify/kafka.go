// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// KafkaConfig configures the Kafka publisher and consumer group.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`

	// GroupID is the consumer group used by serve mode (default: "s3dr").
	GroupID string `mapstructure:"group_id"`

	// RequiredAcks: 0=none, 1=leader, -1=all (default: -1).
	RequiredAcks int `mapstructure:"required_acks"`

	// WriteTimeout is the timeout for write operations (default: 10s).
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// TLS enables TLS for broker connections.
	TLS bool `mapstructure:"tls"`

	// TLSSkipVerify skips TLS certificate verification (for testing).
	TLSSkipVerify bool `mapstructure:"tls_skip_verify"`

	// SASLMechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512; empty disables SASL.
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
}

// DefaultKafkaConfig returns a KafkaConfig with sensible defaults.
func DefaultKafkaConfig(brokers []string) KafkaConfig {
	return KafkaConfig{
		Brokers:      brokers,
		GroupID:      "s3dr",
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

func saramaConfig(cfg KafkaConfig) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "s3dr"
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	switch cfg.RequiredAcks {
	case 0:
		config.Producer.RequiredAcks = sarama.NoResponse
	case 1:
		config.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		config.Producer.RequiredAcks = sarama.WaitForAll
	}

	if cfg.WriteTimeout > 0 {
		config.Producer.Timeout = cfg.WriteTimeout
		config.Net.WriteTimeout = cfg.WriteTimeout
		config.Net.ReadTimeout = cfg.WriteTimeout
	}

	if cfg.TLS {
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		}
	}

	if cfg.SASLMechanism != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword

		switch cfg.SASLMechanism {
		case "SCRAM-SHA-256":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{mechanism: scram.SHA256}
			}
		case "SCRAM-SHA-512":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &scramClient{mechanism: scram.SHA512}
			}
		default:
			config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	return config
}

// KafkaPublisher publishes hand-offs to Kafka; the channel is the topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaPublisher creates a synchronous producer.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka producer creation failed: %w", err)
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Int("required_acks", cfg.RequiredAcks).
		Msg("kafka publisher connected")

	return &KafkaPublisher{producer: producer}, nil
}

// Name returns the publisher identifier.
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish sends msg to the topic. The bucket name is the message key so
// hand-offs for one bucket stay ordered on a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, channel string, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: channel,
		Key:   sarama.StringEncoder(msg.BucketName),
		Value: sarama.ByteEncoder(body),
	})
	observePublish(p.Name(), start, err)
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}

	logger.Ctx(ctx).Debug().
		Str("topic", channel).
		Str("bucket", msg.BucketName).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("published message to kafka")

	return nil
}

// Close closes the Kafka producer.
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaSubscriber consumes hand-offs through a consumer group.
type KafkaSubscriber struct {
	group sarama.ConsumerGroup
}

// NewKafkaSubscriber joins the configured consumer group.
func NewKafkaSubscriber(cfg KafkaConfig) (*KafkaSubscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "s3dr"
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group creation failed: %w", err)
	}
	return &KafkaSubscriber{group: group}, nil
}

func (s *KafkaSubscriber) Name() string {
	return "kafka"
}

// Subscribe consumes every handled topic until ctx is cancelled. Offsets
// are marked after the handler runs whether or not it failed; a failed
// stage is recovered by re-triggering the event upstream.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, handlers map[string]Handler) error {
	topics := channels(handlers)
	if len(topics) == 0 {
		return errors.New("kafka subscribe: no topics")
	}

	logger.Info().
		Strs("topics", topics).
		Msg("kafka subscriber joining group")

	h := &groupHandler{backend: s.Name(), handlers: handlers}
	for {
		if err := s.group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("kafka consume: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (s *KafkaSubscriber) Close() error {
	if s.group != nil {
		return s.group.Close()
	}
	return nil
}

type groupHandler struct {
	backend  string
	handlers map[string]Handler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case m, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			dispatch(sess.Context(), h.backend, m.Topic, m.Value, h.handlers)
			sess.MarkMessage(m, "")
		}
	}
}

// scramClient implements the sarama.SCRAMClient interface for SCRAM authentication.
type scramClient struct {
	mechanism    scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.mechanism.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation.Done()
}
