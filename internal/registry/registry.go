// Package registry implements the writer registry (C7): a named,
// type-erased lookup of writers from request handlers. Go's generics let
// each writer keep its concrete message type; the registry itself is
// keyed at runtime by WriterName, so each entry is a closure over the
// concrete Enqueue call, matching the "closure over a typed channel"
// redesign spec.md calls for in a language without trait-object
// downcasting.
package registry

import (
	"context"
	"errors"
	"fmt"
)

// WriterName identifies a registered writer, matching the
// writers.<name> config sections.
type WriterName string

// ErrNotFound is returned when no writer is registered under the given
// name.
var ErrNotFound = errors.New("registry: writer not found")

// ErrTypeMismatch is returned when the message passed to Enqueue does not
// match the concrete type the named writer was registered with.
var ErrTypeMismatch = errors.New("registry: message type does not match registered writer")

type entry struct {
	enqueue  func(ctx context.Context, msg any) error
	shutdown func(ctx context.Context) error
}

// Registry is the named writer lookup used by request handlers. It is
// built once at startup by Register calls and is safe for concurrent
// read access thereafter (no further mutation happens post-startup).
type Registry struct {
	entries map[WriterName]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[WriterName]entry)}
}

// writerHandle is the minimal contract Register needs from a concrete
// *writer.Writer[T] without importing internal/writer, avoiding an
// import cycle between the two packages.
type writerHandle[T any] interface {
	Enqueue(ctx context.Context, item T) error
	Shutdown(ctx context.Context) error
}

// Register wraps w in a type-erased closure under name. T is inferred
// from w at the call site, which is exactly where the concrete message
// type is known — the registry never needs to downcast.
func Register[T any](r *Registry, name WriterName, w writerHandle[T]) {
	r.entries[name] = entry{
		enqueue: func(ctx context.Context, msg any) error {
			typed, ok := msg.(T)
			if !ok {
				return fmt.Errorf("%w: writer %q expects %T, got %T", ErrTypeMismatch, name, typed, msg)
			}
			return w.Enqueue(ctx, typed)
		},
		shutdown: w.Shutdown,
	}
}

// Enqueue looks up name and forwards msg to its writer, downcasting at
// the type-erased boundary and returning ErrTypeMismatch if msg's
// dynamic type does not match.
func (r *Registry) Enqueue(ctx context.Context, name WriterName, msg any) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.enqueue(ctx, msg)
}

// ShutdownAll closes every registered writer's producer handle and waits
// for each to finish draining, in registration-independent (map) order.
// The first error encountered does not stop the remaining shutdowns from
// being attempted; all errors are joined.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error
	for name, e := range r.entries {
		if err := e.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("writer %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
