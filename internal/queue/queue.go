package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// dispatcherIdleSleep is the fixed pause the dispatcher takes between ring
// pushes when the ring is momentarily full; it is half the writer's own
// 10ms idle sleep.
const dispatcherIdleSleep = 5 * time.Millisecond

// Queue is the bounded channel + ring handoff described for the batching
// writer: many producers send on a buffered channel; a single internal
// dispatcher goroutine drains the channel into the ring as fast as it
// can, so a producer that wins a channel slot is never blocked behind the
// ring filling up or the writer being mid-commit.
type Queue[T any] struct {
	ch     chan T
	ring   *Ring[T]
	closed atomic.Bool

	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// New builds a Queue with the given channel and ring capacities and
// starts its internal dispatcher goroutine.
func New[T any](channelCapacity, ringCapacity int) *Queue[T] {
	q := &Queue[T]{
		ch:           make(chan T, channelCapacity),
		ring:         NewRing[T](ringCapacity),
		dispatchDone: make(chan struct{}),
	}
	go q.dispatch()
	return q
}

// Enqueue blocks until a channel slot is available, the context is
// cancelled, or the queue is closed. It never reorders items from a
// single calling goroutine relative to each other.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) (err error) {
	if q.closed.Load() {
		return ErrClosed
	}
	// Close may close the channel while this send is pending; the
	// resulting send-on-closed-channel panic is reported as ErrClosed.
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new producers and signals the dispatcher to
// perform a final drain once the channel empties. It is safe to call
// multiple times.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.ch)
	})
}

// Wait blocks until the dispatcher has fully drained the channel into the
// ring after Close, i.e. until no more items will ever be pushed.
func (q *Queue[T]) Wait() {
	<-q.dispatchDone
}

// Pop is the writer-side non-blocking pop from the ring.
func (q *Queue[T]) Pop() (T, bool) {
	return q.ring.Pop()
}

// Closed reports whether Close has been called. The writer uses this,
// together with DispatchDone, to decide when it has seen the very last
// item that will ever be pushed into the ring.
func (q *Queue[T]) Closed() bool {
	return q.closed.Load()
}

// DispatchDone returns a channel that closes once the dispatcher has
// finished draining the channel into the ring after Close — i.e. once no
// further Ring.Push calls will ever happen.
func (q *Queue[T]) DispatchDone() <-chan struct{} {
	return q.dispatchDone
}

// RingLen reports the ring's current occupancy (writer-side diagnostics).
func (q *Queue[T]) RingLen() int {
	return q.ring.Len()
}

// dispatch drains the channel into the ring for the lifetime of the
// queue. It is the only goroutine allowed to call Ring.Push, preserving
// the single-producer contract the ring requires.
func (q *Queue[T]) dispatch() {
	defer close(q.dispatchDone)
	for item := range q.ch {
		for !q.ring.Push(item) {
			time.Sleep(dispatcherIdleSleep)
		}
	}
}
