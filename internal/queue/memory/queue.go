// Package memory provides the bounded in-process transform queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan artifact.Task
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan artifact.Task, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, task artifact.Task) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return artifact.ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (artifact.Task, error) {
	select {
	case <-ctx.Done():
		return artifact.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return artifact.Task{}, artifact.ErrQueueClosed
		}
		return task, nil
	}
}

// Len reports the number of tasks waiting for a worker.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown. Enqueue calls blocked on
// a full queue must finish (their contexts end) before Close returns.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
