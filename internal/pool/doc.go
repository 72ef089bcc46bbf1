/*
Package pool runs image jobs on a bounded, resource-aware worker pool.

# Structure

A ThreadPool owns an ants worker pool of MaxWorkers goroutines and a
buffered queue of QueueSize jobs. A single dispatcher goroutine takes jobs
off the queue, waits on the memory monitor when one is configured, and
hands them to ants. Submit blocks while the queue is full.

	p, err := pool.New(pool.AutoConfig(), pool.WithMemoryMonitor(monitor))
	if err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Shutdown(true)

# Futures

Submit and BatchExecute are generic functions because Go methods cannot
take type parameters:

	f, err := pool.Submit(ctx, p, func(ctx context.Context) (int, error) {
		return decode(ctx, path)
	})
	n, err := f.Result()

Every task gets its own context derived from the submitter's. Cancel on a
future that has not started prevents it from ever running; on a running
future it cancels the context and the task is expected to return early.

A task that returns an error or panics marks only its own future failed.
Panics are recovered and wrapped in ErrJobPanicked.

# Batches

BatchExecute submits tasks in order from a background goroutine and
delivers futures in completion order:

	b := pool.BatchExecute(ctx, p, tasks)
	for f := range b.Results() {
		v, err := f.Result()
		...
	}
	if err := b.Err(); err != nil {
		// submission stopped part way; unstarted futures were cancelled
	}

# Statistics

Stats reports worker usage, queue depth, job counters, the rolling average
duration of the last 1000 jobs, process RSS and uptime. All counters are
guarded by one mutex. ThreadPool implements metrics.StatsProvider so a
metrics.Collector can export the same values.

# Shutdown

Shutdown(true) drains the queue and waits for running jobs. Shutdown(false)
cancels queued jobs and returns immediately; running jobs finish in the
background. A stopped pool rejects submissions with ErrPoolNotRunning and
cannot be restarted.
*/
package pool
