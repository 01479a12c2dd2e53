// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"github.com/LeeDigitalWorks/s3dr/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// result is completed, failed or no_handler.
	tasksHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "tasks_handled_total",
		Help:      "DR stage tasks taken off the in-process queue, by result",
	}, []string{"type", "result"})

	handleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "handle_duration_seconds",
		Help:      "Time a DR stage spent on one task",
		// S3 control-plane calls dominate; bucket creation can take seconds.
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"type"})

	tasksEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "tasks_enqueued_total",
		Help:      "Hand-offs placed on the in-process queue",
	}, []string{"type"})

	taskRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "task_retries_total",
		Help:      "Failed tasks scheduled for another attempt",
	}, []string{"type"})

	tasksDeadLettered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "tasks_dead_lettered_total",
		Help:      "Tasks dropped after exhausting their retries",
	}, []string{"type"})

	dequeueErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "s3dr",
		Subsystem: "taskqueue",
		Name:      "dequeue_errors_total",
		Help:      "Dequeue calls that failed",
	})
)

func init() {
	debug.Registry().MustRegister(
		tasksHandled,
		handleDuration,
		tasksEnqueued,
		taskRetries,
		tasksDeadLettered,
		dequeueErrors,
	)
}
