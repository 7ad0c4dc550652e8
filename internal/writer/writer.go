// Package writer implements the batching writer (C5): a single
// long-running task per registered writer name that coalesces items
// popped from its queue's ring buffer into transactional flushes,
// triggered by whichever comes first of the batch filling or the flush
// interval elapsing, with an ordered drain on shutdown.
package writer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/testharbor/internal/queue"
)

// idleSleep is the fixed pause between iterations when there is nothing
// to pop and no flush is due, avoiding a busy loop on the writer
// goroutine.
const idleSleep = 10 * time.Millisecond

// FlushFunc persists one batch transactionally. An error is logged and
// the batch is dropped — the writer never retries a failed flush inline,
// trusting the ring to keep absorbing new arrivals.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Options configures batch sizing and cadence.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Stats is a snapshot of writer counters, exposed for diagnostics and
// metrics scraping.
type Stats struct {
	BatchesFlushed int64
	ItemsWritten   int64
	FlushErrors    int64
	LastFlushError string
}

// Writer is the generic batching writer. T is the message type for one
// registered writer name (e.g. a test-result upsert item).
type Writer[T any] struct {
	name    string
	q       *queue.Queue[T]
	flush   FlushFunc[T]
	opts    Options
	logger  *zap.Logger

	stoppedCh chan struct{}
	stopOnce  sync.Once

	batchesFlushed atomic.Int64
	itemsWritten   atomic.Int64
	flushErrors    atomic.Int64
	lastFlushError atomic.Value // string
}

// New builds a Writer bound to q. Call Start to begin its run loop.
func New[T any](name string, q *queue.Queue[T], flush FlushFunc[T], opts Options, logger *zap.Logger) *Writer[T] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer[T]{
		name:      name,
		q:         q,
		flush:     flush,
		opts:      opts,
		logger:    logger,
		stoppedCh: make(chan struct{}),
	}
}

// Start runs the writer's loop in its own goroutine. It returns
// immediately.
func (w *Writer[T]) Start() {
	go w.run(context.Background())
}

// Shutdown closes the writer's queue (stopping new producers), waits for
// the run loop to perform its terminal drain-and-flush, and returns. If
// ctx is cancelled first, Shutdown returns ctx.Err() without waiting
// further; the run loop keeps going in the background regardless.
func (w *Writer[T]) Shutdown(ctx context.Context) error {
	w.q.Close()
	select {
	case <-w.stoppedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue forwards to the underlying queue.
func (w *Writer[T]) Enqueue(ctx context.Context, item T) error {
	return w.q.Enqueue(ctx, item)
}

// Stats returns a snapshot of the writer's counters.
func (w *Writer[T]) Stats() Stats {
	lastErr, _ := w.lastFlushError.Load().(string)
	return Stats{
		BatchesFlushed: w.batchesFlushed.Load(),
		ItemsWritten:   w.itemsWritten.Load(),
		FlushErrors:    w.flushErrors.Load(),
		LastFlushError: lastErr,
	}
}

func (w *Writer[T]) run(ctx context.Context) {
	defer close(w.stoppedCh)

	buffer := make([]T, 0, w.opts.BatchSize)
	lastFlush := time.Now()

	for {
		for len(buffer) < w.opts.BatchSize {
			v, ok := w.q.Pop()
			if !ok {
				break
			}
			buffer = append(buffer, v)
		}

		if len(buffer) >= w.opts.BatchSize || (len(buffer) > 0 && time.Since(lastFlush) >= w.opts.FlushInterval) {
			w.flushBatch(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		if w.q.Closed() {
			select {
			case <-w.q.DispatchDone():
				w.drainAndTerminate(ctx, buffer)
				return
			default:
				// Dispatcher still has items in flight; keep cycling.
			}
		}

		time.Sleep(idleSleep)
	}
}

// drainAndTerminate performs the final full drain described in the
// shutdown contract: pop everything left in the ring, flushing whenever
// the buffer reaches capacity, then flush the tail.
func (w *Writer[T]) drainAndTerminate(ctx context.Context, buffer []T) {
	for {
		v, ok := w.q.Pop()
		if !ok {
			break
		}
		buffer = append(buffer, v)
		if len(buffer) >= w.opts.BatchSize {
			w.flushBatch(ctx, buffer)
			buffer = buffer[:0]
		}
	}
	if len(buffer) > 0 {
		w.flushBatch(ctx, buffer)
	}
}

func (w *Writer[T]) flushBatch(ctx context.Context, buffer []T) {
	if len(buffer) == 0 {
		return
	}
	batch := make([]T, len(buffer))
	copy(batch, buffer)

	if err := w.flush(ctx, batch); err != nil {
		w.flushErrors.Add(1)
		w.lastFlushError.Store(err.Error())
		w.logger.Error("writer: flush failed, batch dropped",
			zap.String("writer", w.name), zap.Int("batch_size", len(batch)), zap.Error(err))
		return
	}
	w.batchesFlushed.Add(1)
	w.itemsWritten.Add(int64(len(batch)))
}
