// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
)

// dispatch decodes raw and hands it to the channel's handler. Subscribers
// without redelivery call this and only log the outcome.
func dispatch(ctx context.Context, backend, channel string, raw []byte, handlers map[string]Handler) error {
	handler, ok := handlers[channel]
	if !ok {
		MessagesReceivedTotal.WithLabelValues(backend, "unrouted").Inc()
		logger.Warn().
			Str("backend", backend).
			Str("channel", channel).
			Msg("no handler for channel")
		return nil
	}

	msg, err := Decode(raw)
	if err != nil {
		MessagesReceivedTotal.WithLabelValues(backend, "malformed").Inc()
		logger.Warn().
			Err(err).
			Str("backend", backend).
			Str("channel", channel).
			Msg("dropping malformed message")
		return err
	}

	if err := handler(ctx, msg); err != nil {
		MessagesReceivedTotal.WithLabelValues(backend, "failed").Inc()
		logger.Error().
			Err(err).
			Str("backend", backend).
			Str("channel", channel).
			Str("bucket", msg.BucketName).
			Msg("message handler failed")
		return err
	}

	MessagesReceivedTotal.WithLabelValues(backend, "handled").Inc()
	return nil
}

func channels(handlers map[string]Handler) []string {
	out := make([]string, 0, len(handlers))
	for ch := range handlers {
		out = append(out, ch)
	}
	return out
}
