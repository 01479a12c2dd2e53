// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks S3 control-plane call latency by operation
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3dr",
		Subsystem: "storage",
		Name:      "request_duration_seconds",
		Help:      "Latency of S3 bucket configuration calls",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	// RequestErrors tracks failed S3 calls by operation
	RequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "storage",
		Name:      "request_errors_total",
		Help:      "Total number of failed S3 bucket configuration calls",
	}, []string{"operation"})
)

func init() {
	debug.Registry().MustRegister(
		RequestDuration,
		RequestErrors,
	)
}

func observe(op string, start time.Time, err error) {
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		RequestErrors.WithLabelValues(op).Inc()
	}
}
