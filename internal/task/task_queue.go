package task

import (
	"errors"
	"sync"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("task queue is closed")
)

// Queue is an unbounded FIFO safe for concurrent producers and consumers.
//
// Besides the items, the queue records whether a consumer is currently
// draining it. Offer and Next flip that flag under the same lock that guards
// the items, so "start a worker if none is running" and "exit because the
// queue is empty" can never interleave badly.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	draining bool
	closed   bool
}

// NewQueue creates an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends an item without touching the consumer state
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	return nil
}

// Offer appends an item and reports whether the caller is now responsible
// for starting a consumer. It returns true at most once per busy period.
func (q *Queue[T]) Offer(item T) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}
	q.items = append(q.items, item)
	if q.draining {
		return false, nil
	}
	q.draining = true
	return true, nil
}

// Pop removes and returns the head item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Next is Pop for the active consumer. When the queue is empty it also marks
// the consumer as gone, so the following Offer starts a new one.
func (q *Queue[T]) Next() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok = q.popLocked()
	if !ok {
		q.draining = false
	}
	return item, ok
}

// Drain removes and returns every queued item in FIFO order
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Draining reports whether a consumer currently owns the queue
func (q *Queue[T]) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Close rejects further submissions. Items already queued can still be
// consumed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}
