// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/taskqueue"
)

// Backend names.
const (
	BackendSNS   = "sns"
	BackendRedis = "redis"
	BackendKafka = "kafka"
	BackendQueue = "queue"
)

// Config selects and configures the hand-off backend.
type Config struct {
	// Backend is one of sns, redis, kafka or queue.
	Backend string `mapstructure:"backend"`

	// ProvisionChannel receives buckets that need a destination bucket.
	ProvisionChannel string `mapstructure:"provision_channel"`

	// ReplicationChannel receives buckets whose destination is ready.
	ReplicationChannel string `mapstructure:"replication_channel"`

	// Region of the SNS topics (default: the source region).
	Region string `mapstructure:"region"`

	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`

	// QueueConcurrency is the worker count for the queue backend.
	QueueConcurrency int `mapstructure:"queue_concurrency"`

	// QueueHistory caps finished tasks kept by the queue backend; zero
	// uses taskqueue.DefaultHistoryLimit.
	QueueHistory int `mapstructure:"queue_history"`
}

// Validate checks the settings the selected backend needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSNS, BackendQueue:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("notify.redis.addr is required for the redis backend")
		}
	case BackendKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("notify.kafka.brokers is required for the kafka backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.ProvisionChannel == "" {
		return fmt.Errorf("notify.provision_channel is required")
	}
	if c.ReplicationChannel == "" {
		return fmt.Errorf("notify.replication_channel is required")
	}
	return nil
}

// Bus bundles the publisher and, for backends s3dr consumes itself, the
// matching subscriber.
type Bus struct {
	Publisher  Publisher
	Subscriber Subscriber // nil for sns
}

// Close closes both sides.
func (b *Bus) Close() error {
	var err error
	if b.Publisher != nil {
		err = b.Publisher.Close()
	}
	if b.Subscriber != nil {
		if serr := b.Subscriber.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// Open builds the bus for cfg. snsClient is only used by the sns backend.
// When subscribe is false no consumer connections are opened.
func Open(ctx context.Context, cfg Config, snsClient SNSAPI, subscribe bool) (*Bus, error) {
	bus := &Bus{}

	switch cfg.Backend {
	case BackendSNS:
		pub, err := NewSNSPublisher(snsClient)
		if err != nil {
			return nil, err
		}
		bus.Publisher = pub

	case BackendRedis:
		pub, err := NewRedisPublisher(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		bus.Publisher = pub
		if subscribe {
			sub, err := NewRedisSubscriber(ctx, cfg.Redis)
			if err != nil {
				pub.Close()
				return nil, err
			}
			bus.Subscriber = sub
		}

	case BackendKafka:
		pub, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		bus.Publisher = pub
		if subscribe {
			sub, err := NewKafkaSubscriber(cfg.Kafka)
			if err != nil {
				pub.Close()
				return nil, err
			}
			bus.Subscriber = sub
		}

	case BackendQueue:
		var opts []taskqueue.MemoryQueueOption
		if cfg.QueueHistory > 0 {
			opts = append(opts, taskqueue.WithHistoryLimit(cfg.QueueHistory))
		}
		q := taskqueue.NewMemoryQueue(opts...)
		bus.Publisher = NewQueuePublisher(q)
		bus.Subscriber = NewQueueSubscriber(q, cfg.QueueConcurrency, taskqueue.DefaultPollInterval)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	return bus, nil
}
