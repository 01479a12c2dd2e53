// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string `mapstructure:"addr"`

	// Password for Redis authentication (optional).
	Password string `mapstructure:"password"`

	// DB is the Redis database number (default: 0).
	DB int `mapstructure:"db"`

	// DialTimeout is the connection timeout (default 5s).
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	}
}

func newRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes hand-offs with Redis PUBLISH.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	client, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Msg("redis publisher connected")

	return &RedisPublisher{client: client}, nil
}

// Name returns the publisher identifier.
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish sends msg to the Redis channel. A message published while no
// subscriber is listening is lost, which is logged.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	start := time.Now()
	receivers, err := p.client.Publish(ctx, channel, body).Result()
	observePublish(p.Name(), start, err)
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	log := logger.Ctx(ctx)
	if receivers == 0 {
		log.Warn().
			Str("channel", channel).
			Str("bucket", msg.BucketName).
			Msg("published to redis channel with no subscribers")
	} else {
		log.Debug().
			Str("channel", channel).
			Str("bucket", msg.BucketName).
			Int64("subscribers", receivers).
			Msg("published message to redis")
	}

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// RedisSubscriber consumes hand-offs from Redis channels.
type RedisSubscriber struct {
	client *redis.Client
}

// NewRedisSubscriber connects to Redis and verifies the connection.
func NewRedisSubscriber(ctx context.Context, cfg RedisConfig) (*RedisSubscriber, error) {
	client, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &RedisSubscriber{client: client}, nil
}

func (s *RedisSubscriber) Name() string {
	return "redis"
}

// Subscribe listens on every handled channel until ctx is cancelled.
// Handler failures are logged; Redis pub/sub has no redelivery.
func (s *RedisSubscriber) Subscribe(ctx context.Context, handlers map[string]Handler) error {
	names := channels(handlers)
	if len(names) == 0 {
		return errors.New("redis subscribe: no channels")
	}

	ps := s.client.Subscribe(ctx, names...)
	defer ps.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	logger.Info().
		Strs("channels", names).
		Msg("redis subscriber listening")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			dispatch(ctx, s.Name(), m.Channel, []byte(m.Payload), handlers)
		}
	}
}

// Close closes the Redis connection.
func (s *RedisSubscriber) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
