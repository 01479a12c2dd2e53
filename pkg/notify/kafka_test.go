// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKafkaConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultKafkaConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "s3dr", cfg.GroupID)
	assert.Equal(t, -1, cfg.RequiredAcks)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestSaramaConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       KafkaConfig
		acks      sarama.RequiredAcks
		mechanism sarama.SASLMechanism
	}{
		{name: "defaults", cfg: DefaultKafkaConfig(nil), acks: sarama.WaitForAll},
		{name: "leader acks", cfg: KafkaConfig{RequiredAcks: 1}, acks: sarama.WaitForLocal},
		{name: "no acks", cfg: KafkaConfig{RequiredAcks: 0}, acks: sarama.NoResponse},
		{
			name:      "scram 512",
			cfg:       KafkaConfig{RequiredAcks: -1, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u", SASLPassword: "p"},
			acks:      sarama.WaitForAll,
			mechanism: sarama.SASLTypeSCRAMSHA512,
		},
		{
			name:      "plain",
			cfg:       KafkaConfig{RequiredAcks: -1, SASLMechanism: "PLAIN", SASLUsername: "u", SASLPassword: "p"},
			acks:      sarama.WaitForAll,
			mechanism: sarama.SASLTypePlaintext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := saramaConfig(tt.cfg)
			assert.True(t, c.Producer.Return.Successes)
			assert.Equal(t, tt.acks, c.Producer.RequiredAcks)
			if tt.mechanism != "" {
				assert.True(t, c.Net.SASL.Enable)
				assert.Equal(t, tt.mechanism, c.Net.SASL.Mechanism)
			} else {
				assert.False(t, c.Net.SASL.Enable)
			}
		})
	}
}

func TestNewKafkaPublisher_NoBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaPublisher(KafkaConfig{})
	assert.Error(t, err)

	_, err = NewKafkaSubscriber(KafkaConfig{})
	assert.Error(t, err)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, saramaConfig(DefaultKafkaConfig(nil)))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		msg, err := Decode(val)
		if err != nil {
			return err
		}
		if msg.BucketName != "orders" {
			return fmt.Errorf("unexpected bucket %q", msg.BucketName)
		}
		return nil
	})

	pub := &KafkaPublisher{producer: producer}
	assert.Equal(t, "kafka", pub.Name())
	require.NoError(t, pub.Publish(context.Background(), "dr-replicate", Message{BucketName: "orders"}))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, saramaConfig(DefaultKafkaConfig(nil)))
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := &KafkaPublisher{producer: producer}
	err := pub.Publish(context.Background(), "dr-replicate", Message{BucketName: "orders"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Contains(t, err.Error(), "kafka publish")
	require.NoError(t, pub.Close())
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestGroupHandler_ConsumeClaim(t *testing.T) {
	t.Parallel()

	var got []string
	h := &groupHandler{
		backend: "kafka",
		handlers: map[string]Handler{
			"dr-provision": func(ctx context.Context, msg Message) error {
				got = append(got, msg.BucketName)
				if msg.BucketName == "broken" {
					return errors.New("boom")
				}
				return nil
			},
		},
	}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "dr-provision", Offset: 1, Value: []byte(`{"bucket_name":"orders"}`)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "dr-provision", Offset: 2, Value: []byte(`{"bucket_name":"broken"}`)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "dr-provision", Offset: 3, Value: []byte(`{"bucket_name":`)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "other", Offset: 4, Value: []byte(`{"bucket_name":"x"}`)}
	close(claim.messages)

	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.Setup(sess))
	require.NoError(t, h.ConsumeClaim(sess, claim))
	require.NoError(t, h.Cleanup(sess))

	assert.Equal(t, []string{"orders", "broken"}, got)
	assert.Equal(t, []int64{1, 2, 3, 4}, sess.marked)
}

func TestGroupHandler_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &groupHandler{backend: "kafka", handlers: map[string]Handler{}}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}
	assert.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}
