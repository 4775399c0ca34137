// Package queue provides an unbounded multi-producer queue whose consumer side
// can take part in a select statement.
package queue

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded FIFO. Send never blocks. Consumers wait on Ready and
// then take values with TryRecv or Drain, or block in Recv.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	done   chan struct{}
	closed bool
}

// New returns an empty open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send appends v. It fails only when the queue has been closed.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.notify()
	return nil
}

func (q *Queue[T]) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready fires when values may be available. A receive on it is a hint only:
// callers must follow it with TryRecv or Drain.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Done is closed by Close.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// TryRecv pops the oldest value without blocking.
func (q *Queue[T]) TryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.notify()
	}
	return v, true
}

// Drain removes and returns every queued value in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Recv blocks until a value is available, the queue is closed and empty, or
// ctx is done. ok is false in the latter two cases.
func (q *Queue[T]) Recv(ctx context.Context) (v T, ok bool, err error) {
	for {
		if v, ok = q.TryRecv(); ok {
			return v, true, nil
		}
		if q.IsClosed() {
			// A Send may have raced with Close.
			if v, ok = q.TryRecv(); ok {
				return v, true, nil
			}
			return v, false, nil
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return v, false, ctx.Err()
		}
	}
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further sends. Values already queued remain receivable. Close is
// idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
