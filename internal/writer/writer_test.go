package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/testharbor/internal/queue"
)

func TestWriter_FlushesOnBatchSize(t *testing.T) {
	q := queue.New[int](16, 32)
	var mu sync.Mutex
	var flushed [][]int

	w := New("test", q, func(_ context.Context, batch []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, append([]int{}, batch...))
		return nil
	}, Options{BatchSize: 3, FlushInterval: time.Hour}, nil)
	w.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Enqueue(context.Background(), i))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1 && len(flushed[0]) == 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Shutdown(context.Background()))
}

func TestWriter_FlushesOnInterval(t *testing.T) {
	q := queue.New[int](16, 32)
	var mu sync.Mutex
	var flushed [][]int

	w := New("test", q, func(_ context.Context, batch []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, append([]int{}, batch...))
		return nil
	}, Options{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, nil)
	w.Start()

	require.NoError(t, w.Enqueue(context.Background(), 42))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1 && flushed[0][0] == 42
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Shutdown(context.Background()))
}

func TestWriter_ShutdownDrainsRemainingItems(t *testing.T) {
	q := queue.New[int](64, 64)
	var mu sync.Mutex
	var total int

	w := New("test", q, func(_ context.Context, batch []int) error {
		mu.Lock()
		defer mu.Unlock()
		total += len(batch)
		return nil
	}, Options{BatchSize: 10, FlushInterval: time.Hour}, nil)
	w.Start()

	for i := 0; i < 25; i++ {
		require.NoError(t, w.Enqueue(context.Background(), i))
	}

	require.NoError(t, w.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 25, total)
}

func TestWriter_FlushErrorDropsBatchButKeepsRunning(t *testing.T) {
	q := queue.New[int](16, 32)
	calls := 0
	var mu sync.Mutex

	w := New("test", q, func(_ context.Context, batch []int) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("commit failed")
		}
		return nil
	}, Options{BatchSize: 1, FlushInterval: time.Hour}, nil)
	w.Start()

	require.NoError(t, w.Enqueue(context.Background(), 1))
	require.NoError(t, w.Enqueue(context.Background(), 2))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Shutdown(context.Background()))
	stats := w.Stats()
	assert.Equal(t, int64(1), stats.FlushErrors)
	assert.Equal(t, int64(1), stats.BatchesFlushed)
}
