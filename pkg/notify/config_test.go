// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Backend:            BackendSNS,
		ProvisionChannel:   "arn:aws:sns:us-west-2:123456789012:provision",
		ReplicationChannel: "arn:aws:sns:us-west-2:123456789012:replicate",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "sns", mutate: func(c *Config) {}},
		{name: "queue", mutate: func(c *Config) { c.Backend = BackendQueue }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "sqs" }, wantErr: "unknown backend"},
		{name: "redis without addr", mutate: func(c *Config) { c.Backend = BackendRedis }, wantErr: "notify.redis.addr"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Backend = BackendKafka }, wantErr: "notify.kafka.brokers"},
		{name: "missing provision channel", mutate: func(c *Config) { c.ProvisionChannel = "" }, wantErr: "notify.provision_channel"},
		{name: "missing replication channel", mutate: func(c *Config) { c.ReplicationChannel = "" }, wantErr: "notify.replication_channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("sns publishes only", func(t *testing.T) {
		t.Parallel()
		bus, err := Open(ctx, Config{Backend: BackendSNS}, &fakeSNS{}, true)
		require.NoError(t, err)
		assert.Equal(t, "sns", bus.Publisher.Name())
		assert.Nil(t, bus.Subscriber)
		assert.NoError(t, bus.Close())
	})

	t.Run("sns needs a client", func(t *testing.T) {
		t.Parallel()
		_, err := Open(ctx, Config{Backend: BackendSNS}, nil, false)
		assert.Error(t, err)
	})

	t.Run("queue always has a subscriber", func(t *testing.T) {
		t.Parallel()
		bus, err := Open(ctx, Config{Backend: BackendQueue}, nil, false)
		require.NoError(t, err)
		assert.Equal(t, "queue", bus.Publisher.Name())
		require.NotNil(t, bus.Subscriber)
		assert.NoError(t, bus.Close())
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		cfg := Config{Backend: BackendRedis, Redis: DefaultRedisConfig(mr.Addr())}

		bus, err := Open(ctx, cfg, nil, false)
		require.NoError(t, err)
		assert.Nil(t, bus.Subscriber)
		require.NoError(t, bus.Close())

		bus, err = Open(ctx, cfg, nil, true)
		require.NoError(t, err)
		assert.Equal(t, "redis", bus.Subscriber.Name())
		require.NoError(t, bus.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := Open(ctx, Config{Backend: "carrier-pigeon"}, nil, false)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}
