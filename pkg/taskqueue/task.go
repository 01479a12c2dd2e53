// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskqueue provides the in-process work queue used to chain DR
// stages when s3dr runs as a single long-lived process instead of as
// separate Lambda functions.
//
// Each stage hand-off becomes one task. Failed tasks are retried with
// exponential backoff until MaxRetries, then parked as dead letters.
package taskqueue

import (
	"encoding/json"
	"time"
)

// Default configuration values
const (
	DefaultPollInterval = time.Second
	DefaultConcurrency  = 2
	DefaultMaxRetries   = 3
	DefaultBaseBackoff  = time.Second
	DefaultHistoryLimit = 1000
)

// TaskType identifies the type of task for routing to handlers.
type TaskType string

const (
	TaskTypeProvision TaskType = "dr_provision" // create + version the destination bucket
	TaskTypeReplicate TaskType = "dr_replicate" // enable the replication rule
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusRunning    TaskStatus = "running"
	StatusCompleted  TaskStatus = "completed"
	StatusDeadLetter TaskStatus = "dead_letter"
)

// Task represents a unit of work to be processed.
type Task struct {
	ID      string          `json:"id"`
	Type    TaskType        `json:"type"`
	Status  TaskStatus      `json:"status"`
	Payload json.RawMessage `json:"payload"`

	Attempts   int       `json:"attempts"`
	MaxRetries int       `json:"max_retries"`
	RetryAfter time.Time `json:"retry_after,omitempty"`
	LastError  string    `json:"last_error,omitempty"`

	WorkerID  string    `json:"worker_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueueStats provides queue metrics.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Running    int64 `json:"running"`
	Completed  int64 `json:"completed"`
	DeadLetter int64 `json:"dead_letter"`

	ByType map[TaskType]int64 `json:"by_type"`
}
