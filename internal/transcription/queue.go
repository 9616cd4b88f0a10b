package transcription

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by Push when a bounded queue is at capacity
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned by Push after Close and by Pop once a closed queue is drained
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is a FIFO queue safe for concurrent producers and consumers.
// Push never blocks; Pop blocks until an item is available, the queue is
// closed and drained, or the context is done.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	maxDepth int
	closed   bool

	// notify holds at most one pending wake-up for a waiting consumer
	notify   chan struct{}
	closedCh chan struct{}
}

// NewQueue creates a queue. A maxDepth of zero or less means unbounded.
func NewQueue[T any](maxDepth int) *Queue[T] {
	return &Queue[T]{
		maxDepth: maxDepth,
		notify:   make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Push appends v to the queue
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxDepth > 0 && len(q.items) >= q.maxDepth {
		return ErrQueueFull
	}
	q.items = append(q.items, v)
	q.signal()
	return nil
}

// CloseWith appends v regardless of capacity and closes the queue.
// It is a no-op on an already closed queue.
func (q *Queue[T]) CloseWith(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, v)
	q.closed = true
	close(q.closedCh)
	q.signal()
}

// Close closes the queue. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.closedCh)
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pop removes and returns the oldest item
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrQueueClosed
		}

		select {
		case <-q.notify:
		case <-q.closedCh:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// signal wakes one waiting consumer. Callers must hold q.mu.
func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
