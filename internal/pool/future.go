package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"media-pipeline/internal/logging"
)

// Task is a unit of work. Long running tasks should watch ctx and return
// early once it is cancelled.
type Task[T any] func(ctx context.Context) (T, error)

const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateCancelled
)

// job is the type-erased view of a Future used by the dispatcher.
type job interface {
	claim() bool
	run()
	fail(err error)
	cancelPending() bool
}

// Future is the handle to a submitted task.
type Future[T any] struct {
	index  int
	pool   *ThreadPool
	fn     Task[T]
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}
	notify chan<- *Future[T]

	// written once before done is closed
	value    T
	err      error
	duration time.Duration
}

func newFuture[T any](ctx context.Context, p *ThreadPool, index int, fn Task[T], notify chan<- *Future[T]) *Future[T] {
	jobCtx, cancel := context.WithCancel(ctx)
	return &Future[T]{
		index:  index,
		pool:   p,
		fn:     fn,
		ctx:    jobCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		notify: notify,
	}
}

// Index is the position of the task in the slice given to BatchExecute,
// or 0 for a task submitted on its own.
func (f *Future[T]) Index() int {
	return f.index
}

// Done is closed once the task has finished, failed or been cancelled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the task finishes and returns its value and error.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait is Result bounded by ctx.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Duration is how long the task ran. Zero until it finishes and for
// tasks that never started.
func (f *Future[T]) Duration() time.Duration {
	<-f.done
	return f.duration
}

// Cancelled reports whether the task was cancelled before it started.
func (f *Future[T]) Cancelled() bool {
	return f.state.Load() == stateCancelled
}

// Cancel cancels the task's context. A task that has not started yet never
// runs and Cancel returns true; a running task is only signalled.
func (f *Future[T]) Cancel() bool {
	cancelled := f.cancelPending()
	f.cancel()
	return cancelled
}

func (f *Future[T]) claim() bool {
	return f.state.CompareAndSwap(statePending, stateRunning)
}

func (f *Future[T]) cancelPending() bool {
	if !f.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	f.err = ErrCancelled
	f.cancel()
	f.pool.jobCancelled()
	f.complete()
	return true
}

func (f *Future[T]) run() {
	start := time.Now()
	value, err := f.call()
	f.duration = time.Since(start)
	f.value, f.err = value, err
	f.state.Store(stateDone)
	f.cancel()

	if err != nil {
		logging.Debug("Job %d failed after %v: %v", f.index, f.duration, err)
	}
	f.pool.jobFinished(f.duration, err)
	f.complete()
}

// fail finishes a claimed task that could not be handed to a worker.
func (f *Future[T]) fail(err error) {
	f.err = err
	f.state.Store(stateDone)
	f.cancel()
	f.pool.jobFinished(0, err)
	f.complete()
}

func (f *Future[T]) call() (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Job %d panicked: %v\n%s", f.index, r, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	if err := f.ctx.Err(); err != nil {
		return value, err
	}
	return f.fn(f.ctx)
}

func (f *Future[T]) complete() {
	close(f.done)
	if f.notify != nil {
		f.notify <- f
	}
}
