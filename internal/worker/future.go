package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Future is the caller's handle on one submitted job. It resolves exactly
// once.
type Future[T any] struct {
	id     uuid.UUID
	done   chan struct{}
	once   sync.Once
	result fn.Result[T]
}

func newFuture[T any](id uuid.UUID) *Future[T] {
	return &Future[T]{id: id, done: make(chan struct{})}
}

// ID returns the request id the job was submitted under.
func (f *Future[T]) ID() uuid.UUID {
	return f.id
}

// Done is closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the job resolves or ctx ends. A ctx error does not
// cancel the job.
func (f *Future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		return f.result
	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// complete resolves the future. Later calls are ignored.
func (f *Future[T]) complete(r fn.Result[T]) bool {
	resolved := false
	f.once.Do(func() {
		f.result = r
		close(f.done)
		resolved = true
	})
	return resolved
}

// Resolved returns a future that is already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T](uuid.New())
	f.complete(fn.Ok(v))
	return f
}

// Then returns a future, under the same request id, resolved with apply
// applied to src's result once src resolves. apply runs on its own goroutine.
func Then[A, B any](src *Future[A], apply func(fn.Result[A]) fn.Result[B]) *Future[B] {
	dst := newFuture[B](src.id)
	go func() {
		<-src.done
		dst.complete(apply(src.result))
	}()
	return dst
}
