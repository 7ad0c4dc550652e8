package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter[T any] struct {
	received []T
	shutdown bool
}

func (f *fakeWriter[T]) Enqueue(_ context.Context, item T) error {
	f.received = append(f.received, item)
	return nil
}

func (f *fakeWriter[T]) Shutdown(_ context.Context) error {
	f.shutdown = true
	return nil
}

func TestRegistry_EnqueueRoutesToRegisteredWriter(t *testing.T) {
	r := New()
	fw := &fakeWriter[string]{}
	Register[string](r, "greeting", fw)

	err := r.Enqueue(context.Background(), "greeting", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, fw.received)
}

func TestRegistry_EnqueueUnknownWriter(t *testing.T) {
	r := New()
	err := r.Enqueue(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_EnqueueTypeMismatch(t *testing.T) {
	r := New()
	fw := &fakeWriter[int]{}
	Register[int](r, "counts", fw)

	err := r.Enqueue(context.Background(), "counts", "not-an-int")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRegistry_ShutdownAllClosesEveryWriter(t *testing.T) {
	r := New()
	a := &fakeWriter[int]{}
	b := &fakeWriter[string]{}
	Register[int](r, "a", a)
	Register[string](r, "b", b)

	require.NoError(t, r.ShutdownAll(context.Background()))
	assert.True(t, a.shutdown)
	assert.True(t, b.shutdown)
}
