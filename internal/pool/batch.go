package pool

import (
	"context"
	"fmt"
)

// Batch streams the futures of a BatchExecute call in completion order.
type Batch[T any] struct {
	results chan *Future[T]
	total   int
	err     error
}

// BatchExecute submits every task to p and yields each future as it
// completes. Submission happens in the background; if it fails part way,
// futures that have not started are cancelled (they are still yielded,
// with ErrCancelled) and Err reports the submission error.
func BatchExecute[T any](ctx context.Context, p *ThreadPool, tasks []Task[T]) *Batch[T] {
	b := &Batch[T]{
		results: make(chan *Future[T]),
		total:   len(tasks),
	}
	go b.feed(ctx, p, tasks)
	return b
}

func (b *Batch[T]) feed(ctx context.Context, p *ThreadPool, tasks []Task[T]) {
	defer close(b.results)

	// Buffered for every task so completing futures never block a worker.
	completions := make(chan *Future[T], len(tasks))
	submitted := make([]*Future[T], 0, len(tasks))

	for i, task := range tasks {
		f, err := submit(ctx, p, i, task, completions)
		if err != nil {
			b.err = fmt.Errorf("batch submission failed at task %d of %d: %w", i+1, len(tasks), err)
			for _, sf := range submitted {
				sf.cancelPending()
			}
			break
		}
		submitted = append(submitted, f)
	}

	for range submitted {
		b.results <- <-completions
	}
}

// Results yields completed futures. The channel is closed once every
// submitted future has been delivered.
func (b *Batch[T]) Results() <-chan *Future[T] {
	return b.results
}

// Len is the number of tasks given to BatchExecute.
func (b *Batch[T]) Len() int {
	return b.total
}

// Err reports a submission failure. It is only meaningful after Results
// has been drained.
func (b *Batch[T]) Err() error {
	return b.err
}

// Collect drains the batch and returns the futures in completion order.
func (b *Batch[T]) Collect() ([]*Future[T], error) {
	out := make([]*Future[T], 0, b.total)
	for f := range b.results {
		out = append(out, f)
	}
	return out, b.err
}
