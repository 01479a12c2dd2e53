// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify carries DR stage hand-offs between handlers. A hand-off is
// a single Message naming the source bucket; backends differ only in how
// the bytes travel (SNS, Redis pub/sub, Kafka, or the in-process queue).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyMessage   = errors.New("notify: message has no bucket name")
	ErrUnknownBackend = errors.New("notify: unknown backend")
)

// Message is the payload passed from one DR stage to the next.
type Message struct {
	BucketName string `json:"bucket_name"`
}

// Encode renders the message as JSON.
func (m Message) Encode() ([]byte, error) {
	if m.BucketName == "" {
		return nil, ErrEmptyMessage
	}
	return json.Marshal(m)
}

// Decode parses a JSON message. A bare bucket name is accepted too, which
// is what older publishers put on the wire.
func Decode(data []byte) (Message, error) {
	data = bytes.TrimSpace(data)

	var m Message
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &m); err != nil {
			return Message{}, fmt.Errorf("notify: decode message: %w", err)
		}
	} else {
		m.BucketName = strings.Trim(string(data), `"`)
	}

	m.BucketName = strings.TrimSpace(m.BucketName)
	if m.BucketName == "" {
		return Message{}, ErrEmptyMessage
	}
	return m, nil
}

// Publisher sends messages to a named channel.
type Publisher interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Publish sends msg to channel. Delivery is not confirmed beyond the
	// backend accepting the message.
	Publish(ctx context.Context, channel string, msg Message) error

	Close() error
}

// Handler consumes one message.
type Handler func(ctx context.Context, msg Message) error

// Subscriber delivers messages from named channels to handlers.
type Subscriber interface {
	Name() string

	// Subscribe blocks, dispatching each channel's messages to its
	// handler, until ctx is cancelled.
	Subscribe(ctx context.Context, handlers map[string]Handler) error

	Close() error
}
