// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"github.com/LeeDigitalWorks/s3dr/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsReceivedTotal tracks decoded trigger events by event name
	EventsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "events",
		Name:      "received_total",
		Help:      "Total number of trigger events decoded",
	}, []string{"event_name"}) // event_name: "PutBucketTagging", "DeleteBucketReplication", "other"

	// EventsMalformedTotal tracks events rejected before a bucket was known
	EventsMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "events",
		Name:      "malformed_total",
		Help:      "Total number of trigger events rejected as malformed",
	})
)

func init() {
	debug.Registry().MustRegister(
		EventsReceivedTotal,
		EventsMalformedTotal,
	)
}
