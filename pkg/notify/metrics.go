// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MessagesPublishedTotal tracks successful publishes by backend
	MessagesPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "notify",
		Name:      "published_total",
		Help:      "Total number of hand-off messages published",
	}, []string{"backend"})

	// PublishErrorsTotal tracks failed publishes by backend
	PublishErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "notify",
		Name:      "publish_errors_total",
		Help:      "Total number of failed hand-off publishes",
	}, []string{"backend"})

	// PublishDuration tracks publish latency by backend
	PublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3dr",
		Subsystem: "notify",
		Name:      "publish_duration_seconds",
		Help:      "Time spent publishing hand-off messages",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"backend"})

	// MessagesReceivedTotal tracks consumed messages by backend and outcome
	MessagesReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "notify",
		Name:      "received_total",
		Help:      "Total number of hand-off messages consumed",
	}, []string{"backend", "outcome"}) // outcome: "handled", "failed", "malformed", "unrouted"
)

func init() {
	debug.Registry().MustRegister(
		MessagesPublishedTotal,
		PublishErrorsTotal,
		PublishDuration,
		MessagesReceivedTotal,
	)
}

func observePublish(backend string, start time.Time, err error) {
	PublishDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		PublishErrorsTotal.WithLabelValues(backend).Inc()
		return
	}
	MessagesPublishedTotal.WithLabelValues(backend).Inc()
}
