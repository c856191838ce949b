package indexing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexis-chat/nexis/gateway/pkg/safego"
	"go.uber.org/zap"
)

// DefaultQueueCapacity bounds the pending task channel.
const DefaultQueueCapacity = 1024

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Retries   int64 `json:"retries"`
}

// Queue feeds index tasks to a single background worker. A full queue
// rejects new tasks instead of blocking the caller. Failed tasks are
// requeued until their attempt budget runs out.
type Queue struct {
	service *Service
	tasks   chan *IndexTask
	logger  *zap.Logger

	completed atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}
}

// NewQueue creates a queue and starts its worker.
func NewQueue(service *Service, capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		service: service,
		tasks:   make(chan *IndexTask, capacity),
		logger:  logger.With(zap.String("component", "index-queue")),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	safego.Go(q.logger, "indexing-worker", q.run)
	return q
}

// Enqueue submits a task. A saturated or closed queue drops the task and
// counts it as failed.
func (q *Queue) Enqueue(task *IndexTask) bool {
	select {
	case <-q.closed:
		q.failed.Add(1)
		return false
	default:
	}

	select {
	case q.tasks <- task:
		return true
	default:
		q.failed.Add(1)
		q.logger.Warn("Index queue saturated, dropping task",
			zap.String("message_id", task.MessageID),
		)
		return false
	}
}

// Stats snapshots the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.tasks),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Retries:   q.retries.Load(),
	}
}

// Close stops intake and waits for the worker to drain pending tasks.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	<-q.drained
}

func (q *Queue) run() {
	defer close(q.drained)
	for {
		select {
		case task := <-q.tasks:
			q.process(task)
		case <-q.closed:
			// Intake is shut, drain what is already queued.
			for {
				select {
				case task := <-q.tasks:
					q.process(task)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) process(task *IndexTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := q.service.IndexMessage(ctx, task)
	cancel()

	if err == nil {
		q.completed.Add(1)
		return
	}

	// Only the embedding stage is worth another attempt; a store
	// rejection will fail the same way every time.
	var embedErr *EmbedError
	if !errors.As(err, &embedErr) {
		q.failed.Add(1)
		q.logger.Error("Index task failed",
			zap.String("message_id", task.MessageID),
			zap.Error(err),
		)
		return
	}

	task.Attempts++
	if !task.CanRetry() {
		q.failed.Add(1)
		q.logger.Error("Index task failed permanently",
			zap.String("message_id", task.MessageID),
			zap.Int("attempts", task.Attempts),
			zap.Error(err),
		)
		return
	}

	q.retries.Add(1)
	q.logger.Warn("Index task failed, requeueing",
		zap.String("message_id", task.MessageID),
		zap.Int("attempts", task.Attempts),
		zap.Error(err),
	)
	if !q.requeue(task) {
		q.logger.Error("Requeue rejected, dropping task",
			zap.String("message_id", task.MessageID),
		)
	}
}

func (q *Queue) requeue(task *IndexTask) bool {
	select {
	case <-q.closed:
		q.failed.Add(1)
		return false
	default:
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.failed.Add(1)
		return false
	}
}
