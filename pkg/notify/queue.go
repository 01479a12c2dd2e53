// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/taskqueue"
)

// QueuePublisher enqueues hand-offs on the in-process task queue; the
// channel name becomes the task type.
type QueuePublisher struct {
	queue taskqueue.Queue
}

// NewQueuePublisher publishes onto q.
func NewQueuePublisher(q taskqueue.Queue) *QueuePublisher {
	return &QueuePublisher{queue: q}
}

func (p *QueuePublisher) Name() string {
	return "queue"
}

func (p *QueuePublisher) Publish(ctx context.Context, channel string, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	task := &taskqueue.Task{
		Type:    taskqueue.TaskType(channel),
		Payload: body,
	}

	start := time.Now()
	err = p.queue.Enqueue(ctx, task)
	observePublish(p.Name(), start, err)
	if err != nil {
		return err
	}

	logger.Ctx(ctx).Debug().
		Str("channel", channel).
		Str("bucket", msg.BucketName).
		Str("task_id", task.ID).
		Msg("queued hand-off")
	return nil
}

// Close is a no-op; the queue is owned by whoever created it.
func (p *QueuePublisher) Close() error {
	return nil
}

// QueueSubscriber runs a task worker over the in-process queue. Handler
// errors are retried by the queue with backoff.
type QueueSubscriber struct {
	queue       taskqueue.Queue
	concurrency int
	poll        time.Duration
}

// NewQueueSubscriber consumes from q.
func NewQueueSubscriber(q taskqueue.Queue, concurrency int, poll time.Duration) *QueueSubscriber {
	return &QueueSubscriber{queue: q, concurrency: concurrency, poll: poll}
}

func (s *QueueSubscriber) Name() string {
	return "queue"
}

func (s *QueueSubscriber) Subscribe(ctx context.Context, handlers map[string]Handler) error {
	worker := taskqueue.NewWorker(taskqueue.WorkerConfig{
		ID:           "s3dr-serve",
		Queue:        s.queue,
		PollInterval: s.poll,
		Concurrency:  s.concurrency,
	})

	for channel := range handlers {
		worker.RegisterHandler(taskqueue.HandlerFunc{
			TaskType: taskqueue.TaskType(channel),
			Fn: func(ctx context.Context, task *taskqueue.Task) error {
				return dispatch(ctx, s.Name(), channel, task.Payload, handlers)
			},
		})
	}

	worker.Start(ctx)
	<-ctx.Done()
	worker.Stop()
	return nil
}

// Close closes the underlying queue.
func (s *QueueSubscriber) Close() error {
	return s.queue.Close()
}
