// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time interface verification
var (
	_ Queue    = (*MemoryQueue)(nil)
	_ Notifier = (*MemoryQueue)(nil)
)

// MemoryQueue is an in-memory FIFO queue. Tasks do not survive a restart;
// the upstream trigger is the durable record.
type MemoryQueue struct {
	mu     sync.Mutex
	order  []string
	tasks  map[string]*Task
	closed bool

	// history holds finished task IDs, oldest first. Tasks beyond
	// historyLimit are dropped from tasks.
	history      []string
	historyLimit int

	baseBackoff time.Duration
	now         func() time.Time
	ready       chan struct{}
}

// MemoryQueueOption configures a MemoryQueue.
type MemoryQueueOption func(*MemoryQueue)

// WithBaseBackoff sets the first retry delay; later retries double it.
func WithBaseBackoff(d time.Duration) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.baseBackoff = d
	}
}

// WithHistoryLimit sets how many completed or dead-lettered tasks stay
// readable through Get and Stats. Zero keeps none.
func WithHistoryLimit(n int) MemoryQueueOption {
	return func(q *MemoryQueue) {
		q.historyLimit = max(n, 0)
	}
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(opts ...MemoryQueueOption) *MemoryQueue {
	q := &MemoryQueue{
		tasks:        make(map[string]*Task),
		historyLimit: DefaultHistoryLimit,
		baseBackoff:  DefaultBaseBackoff,
		now:          time.Now,
		ready:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Ready fires after an enqueue or requeue.
func (q *MemoryQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *MemoryQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	now := q.now()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = DefaultMaxRetries
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.Status = StatusPending
	task.UpdatedAt = now

	if _, exists := q.tasks[task.ID]; !exists {
		q.order = append(q.order, task.ID)
	}
	q.tasks[task.ID] = task

	tasksEnqueued.WithLabelValues(string(task.Type)).Inc()
	q.signal()
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, workerID string, taskTypes ...TaskType) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	now := q.now()
	for _, id := range q.order {
		task := q.tasks[id]
		if task.Status != StatusPending {
			continue
		}
		if !task.RetryAfter.IsZero() && task.RetryAfter.After(now) {
			continue
		}
		if len(taskTypes) > 0 && !slices.Contains(taskTypes, task.Type) {
			continue
		}

		task.Status = StatusRunning
		task.WorkerID = workerID
		task.UpdatedAt = now
		return task, nil
	}

	return nil, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	task.Status = StatusCompleted
	task.UpdatedAt = q.now()
	q.forget(taskID)
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, taskID string, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	now := q.now()
	task.Attempts++
	task.LastError = err.Error()
	task.UpdatedAt = now
	task.WorkerID = ""

	if task.Attempts >= task.MaxRetries {
		task.Status = StatusDeadLetter
		q.forget(taskID)
		tasksDeadLettered.WithLabelValues(string(task.Type)).Inc()
		return nil
	}

	// 1x, 2x, 4x ... the base backoff
	task.RetryAfter = now.Add(q.baseBackoff << (task.Attempts - 1))
	task.Status = StatusPending
	taskRetries.WithLabelValues(string(task.Type)).Inc()
	q.signal()
	return nil
}

// forget drops a finished task from the dispatch order. It stays
// addressable through Get and Stats until it ages out of the history.
func (q *MemoryQueue) forget(taskID string) {
	q.order = slices.DeleteFunc(q.order, func(id string) bool { return id == taskID })

	q.history = append(q.history, taskID)
	for len(q.history) > q.historyLimit {
		delete(q.tasks, q.history[0])
		q.history = q.history[1:]
	}
}

func (q *MemoryQueue) Get(ctx context.Context, taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (q *MemoryQueue) Stats(ctx context.Context) (*QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := &QueueStats{
		ByType: make(map[TaskType]int64),
	}
	for _, task := range q.tasks {
		switch task.Status {
		case StatusPending:
			stats.Pending++
		case StatusRunning:
			stats.Running++
		case StatusCompleted:
			stats.Completed++
		case StatusDeadLetter:
			stats.DeadLetter++
		}
		stats.ByType[task.Type]++
	}
	return stats, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
