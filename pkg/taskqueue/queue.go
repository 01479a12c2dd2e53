// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrQueueClosed  = errors.New("task queue is closed")
)

// Queue defines the interface for task queue operations.
type Queue interface {
	// Enqueue adds a task to the queue.
	Enqueue(ctx context.Context, task *Task) error

	// Dequeue claims the oldest runnable task of one of taskTypes.
	// Returns nil if no tasks are available.
	Dequeue(ctx context.Context, workerID string, taskTypes ...TaskType) (*Task, error)

	// Complete marks a task as successfully completed.
	Complete(ctx context.Context, taskID string) error

	// Fail records a failed attempt. If retries remain, the task will be requeued.
	Fail(ctx context.Context, taskID string, err error) error

	// Get retrieves a task by ID.
	Get(ctx context.Context, taskID string) (*Task, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Close shuts down the queue.
	Close() error
}

// Notifier is implemented by queues that can wake idle workers as soon as
// a task becomes available.
type Notifier interface {
	Ready() <-chan struct{}
}

// Handler processes tasks of a specific type.
type Handler interface {
	// Type returns the task type this handler processes.
	Type() TaskType

	// Handle processes the task and returns an error if it failed.
	Handle(ctx context.Context, task *Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	TaskType TaskType
	Fn       func(ctx context.Context, task *Task) error
}

func (h HandlerFunc) Type() TaskType {
	return h.TaskType
}

func (h HandlerFunc) Handle(ctx context.Context, task *Task) error {
	return h.Fn(ctx, task)
}
