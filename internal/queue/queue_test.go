package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PushPopFIFO(t *testing.T) {
	r := NewRing[int](4)
	assert.True(t, r.Push(1))
	assert.True(t, r.Push(2))
	assert.True(t, r.Push(3))
	assert.True(t, r.Push(4))
	assert.False(t, r.Push(5), "ring should report full at capacity")

	for _, want := range []int{1, 2, 3, 4} {
		got, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestQueue_EnqueueThenPopPreservesOrder(t *testing.T) {
	q := New[int](8, 16)
	defer q.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), i))
	}

	assert.Eventually(t, func() bool { return q.RingLen() == 5 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestQueue_EnqueueAfterCloseFails(t *testing.T) {
	q := New[int](4, 4)
	q.Close()
	q.Wait()

	err := q.Enqueue(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_CloseDrainsRemainingIntoRing(t *testing.T) {
	q := New[int](8, 8)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), i))
	}
	q.Close()
	q.Wait()

	seen := []int{}
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		seen = append(seen, v)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestQueue_EnqueueRespectsContextCancellation(t *testing.T) {
	q := New[int](1, 1)
	defer q.Close()

	// Fill every stage to force a block deterministically: item 1 fills
	// the ring, item 2 is held by the dispatcher waiting for ring space,
	// and item 3 fills the channel.
	require.NoError(t, q.Enqueue(context.Background(), 1))
	assert.Eventually(t, func() bool { return q.RingLen() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), 2))
	assert.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), 3))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ch := make(chan error, 1)
	go func() {
		ch <- q.Enqueue(ctx, 4)
	}()

	select {
	case err := <-ch:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("expected enqueue to observe context cancellation")
	}
}
