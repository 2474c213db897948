// Package memory provides the in-process scan request queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// Queue is an unbounded FIFO with context-aware dequeues. Enqueue never
// blocks; Dequeue blocks while the queue is empty.
type Queue struct {
	mu     sync.Mutex
	items  []leads.ScanRequest
	signal chan struct{}
	closed bool
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends req. It only fails once the queue is closed.
func (q *Queue) Enqueue(_ context.Context, req leads.ScanRequest) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("enqueue: %w", leads.ErrQueueClosed)
	}
	q.items = append(q.items, req)
	q.mu.Unlock()
	q.notify()
	return nil
}

// Dequeue pops the oldest request, respecting context cancellation. Requests
// still buffered at Close are handed out before ErrQueueClosed is returned.
func (q *Queue) Dequeue(ctx context.Context) (leads.ScanRequest, error) {
	for {
		if err := ctx.Err(); err != nil {
			return leads.ScanRequest{}, fmt.Errorf("dequeue canceled: %w", err)
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items[0] = leads.ScanRequest{}
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				q.notify()
			}
			return req, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			q.notify()
			return leads.ScanRequest{}, leads.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return leads.ScanRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.signal:
		}
	}
}

// Len reports the number of buffered requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues and wakes blocked consumers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
