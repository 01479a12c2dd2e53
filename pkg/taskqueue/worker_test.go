// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/taskqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_RegisterHandler(t *testing.T) {
	t.Parallel()

	q := taskqueue.NewMemoryQueue()
	defer q.Close()

	worker := taskqueue.NewWorker(taskqueue.WorkerConfig{ID: "test-worker", Queue: q})
	worker.RegisterHandler(nil)
	assert.Empty(t, worker.HandlerTypes())

	worker.RegisterHandler(taskqueue.HandlerFunc{TaskType: taskqueue.TaskTypeProvision, Fn: func(context.Context, *taskqueue.Task) error { return nil }})
	worker.RegisterHandler(taskqueue.HandlerFunc{TaskType: taskqueue.TaskTypeReplicate, Fn: func(context.Context, *taskqueue.Task) error { return nil }})

	assert.ElementsMatch(t, []taskqueue.TaskType{taskqueue.TaskTypeProvision, taskqueue.TaskTypeReplicate}, worker.HandlerTypes())
	assert.Equal(t, q, worker.Queue())
}

func TestWorker_StartWithoutHandlers(t *testing.T) {
	t.Parallel()

	q := taskqueue.NewMemoryQueue()
	defer q.Close()

	worker := taskqueue.NewWorker(taskqueue.WorkerConfig{ID: "idle", Queue: q})
	worker.Start(context.Background())
	worker.Stop()
}

func TestWorker_ProcessesOnReadySignal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := taskqueue.NewMemoryQueue()
		defer q.Close()

		var handled atomic.Int32
		worker := taskqueue.NewWorker(taskqueue.WorkerConfig{
			ID:           "test-worker",
			Queue:        q,
			PollInterval: time.Hour,
			Concurrency:  1,
		})
		worker.RegisterHandler(taskqueue.HandlerFunc{
			TaskType: taskqueue.TaskTypeProvision,
			Fn: func(ctx context.Context, task *taskqueue.Task) error {
				handled.Add(1)
				return nil
			},
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		worker.Start(ctx)

		task := provisionTask("orders")
		require.NoError(t, q.Enqueue(ctx, task))

		// No poll tick has elapsed: only the ready signal can wake the worker.
		synctest.Wait()
		assert.Equal(t, int32(1), handled.Load())

		got, err := q.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, taskqueue.StatusCompleted, got.Status)

		worker.Stop()
	})
}

func TestWorker_RetriesFailedTask(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := taskqueue.NewMemoryQueue(taskqueue.WithBaseBackoff(time.Second))
		defer q.Close()

		var attempts atomic.Int32
		worker := taskqueue.NewWorker(taskqueue.WorkerConfig{
			ID:           "test-worker",
			Queue:        q,
			PollInterval: 500 * time.Millisecond,
			Concurrency:  1,
		})
		worker.RegisterHandler(taskqueue.HandlerFunc{
			TaskType: taskqueue.TaskTypeReplicate,
			Fn: func(ctx context.Context, task *taskqueue.Task) error {
				if attempts.Add(1) == 1 {
					return errors.New("SlowDown")
				}
				return nil
			},
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		worker.Start(ctx)

		task := &taskqueue.Task{Type: taskqueue.TaskTypeReplicate}
		require.NoError(t, q.Enqueue(ctx, task))

		synctest.Wait()
		assert.Equal(t, int32(1), attempts.Load())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Equal(t, int32(2), attempts.Load())

		got, err := q.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, taskqueue.StatusCompleted, got.Status)
		assert.Equal(t, 1, got.Attempts)

		worker.Stop()
	})
}

func TestWorker_UnknownTypeIsNotDequeued(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := taskqueue.NewMemoryQueue()
		defer q.Close()

		worker := taskqueue.NewWorker(taskqueue.WorkerConfig{
			ID:           "test-worker",
			Queue:        q,
			PollInterval: 100 * time.Millisecond,
			Concurrency:  1,
		})
		worker.RegisterHandler(taskqueue.HandlerFunc{
			TaskType: taskqueue.TaskTypeProvision,
			Fn:       func(context.Context, *taskqueue.Task) error { return nil },
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		worker.Start(ctx)

		task := &taskqueue.Task{Type: taskqueue.TaskTypeReplicate}
		require.NoError(t, q.Enqueue(ctx, task))

		time.Sleep(time.Second)
		synctest.Wait()

		got, err := q.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, taskqueue.StatusPending, got.Status)

		worker.Stop()
	})
}
