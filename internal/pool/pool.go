package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/workers"
)

var (
	// ErrPoolNotRunning is returned when submitting to a pool that has not
	// been started or has been shut down.
	ErrPoolNotRunning = errors.New("worker pool is not running")

	// ErrCancelled is the error of a task cancelled before it started.
	ErrCancelled = errors.New("job cancelled before start")

	// ErrJobPanicked wraps a panic recovered from a task.
	ErrJobPanicked = errors.New("job panicked")
)

// durationWindow is the number of recent completions averaged in Stats.
const durationWindow = 1000

// Config sizes the pool.
type Config struct {
	MaxWorkers int
	QueueSize  int
	// IdleTimeout is how long an idle worker goroutine is kept alive.
	IdleTimeout time.Duration
}

// AutoConfig returns a Config sized for the current host.
func AutoConfig() Config {
	s := workers.Detect()
	return Config{MaxWorkers: s.MaxWorkers, QueueSize: s.QueueSize}
}

// Option configures a ThreadPool.
type Option func(*ThreadPool)

// WithMemoryMonitor makes the dispatcher wait while the monitor reports
// memory pressure.
func WithMemoryMonitor(m *memory.Monitor) Option {
	return func(p *ThreadPool) { p.monitor = m }
}

// ThreadPool runs tasks on a bounded set of workers behind a bounded queue.
type ThreadPool struct {
	cfg     Config
	monitor *memory.Monitor

	lifecycle    sync.RWMutex
	running      bool
	stopped      bool
	queue        chan job
	workers      *ants.Pool
	dispatchDone chan struct{}
	abandon      atomic.Bool

	active   atomic.Int64
	inflight sync.WaitGroup

	// mu guards every counter below.
	mu        sync.Mutex
	submitted int64
	completed int64
	failed    int64
	cancelled int64
	window    [durationWindow]time.Duration
	windowLen int
	windowPos int
	windowSum time.Duration
	startedAt time.Time
}

// New creates a pool. Call Start before submitting.
func New(cfg Config, opts ...Option) (*ThreadPool, error) {
	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("max workers must be at least 1, got %d", cfg.MaxWorkers)
	}
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("queue size must be at least 1, got %d", cfg.QueueSize)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Second
	}

	p := &ThreadPool{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches the workers and the dispatcher. Starting a running pool
// is a no-op; a pool that was shut down cannot be restarted.
func (p *ThreadPool) Start() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.stopped {
		return ErrPoolNotRunning
	}
	if p.running {
		return nil
	}

	w, err := ants.NewPool(p.cfg.MaxWorkers,
		ants.WithExpiryDuration(p.cfg.IdleTimeout),
		ants.WithLogger(logging.PoolLogger{}),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	p.workers = w
	p.queue = make(chan job, p.cfg.QueueSize)
	p.dispatchDone = make(chan struct{})
	p.running = true

	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()

	go p.dispatch(p.queue)

	logging.Info("Worker pool started: %d workers, queue capacity %d", p.cfg.MaxWorkers, p.cfg.QueueSize)
	return nil
}

// Running reports whether the pool accepts submissions.
func (p *ThreadPool) Running() bool {
	p.lifecycle.RLock()
	defer p.lifecycle.RUnlock()
	return p.running
}

// dispatch moves queued jobs onto workers. ants blocks Submit while every
// worker is busy, so the queue channel absorbs the backlog.
func (p *ThreadPool) dispatch(queue <-chan job) {
	defer close(p.dispatchDone)

	for j := range queue {
		if p.abandon.Load() {
			j.cancelPending()
			continue
		}
		if p.monitor != nil {
			p.monitor.WaitIfPaused()
		}
		if !j.claim() {
			// cancelled while queued
			continue
		}
		if err := p.workers.Submit(func() { p.execute(j) }); err != nil {
			logging.Error("Failed to hand job to a worker: %v", err)
			j.fail(fmt.Errorf("worker submission failed: %w", err))
		}
	}
}

func (p *ThreadPool) execute(j job) {
	p.active.Add(1)
	defer p.active.Add(-1)
	j.run()
}

// enqueue registers j and places it on the queue, blocking while the
// queue is full.
func (p *ThreadPool) enqueue(ctx context.Context, j job) error {
	p.lifecycle.RLock()
	defer p.lifecycle.RUnlock()

	if !p.running {
		return ErrPoolNotRunning
	}

	p.inflight.Add(1)
	p.mu.Lock()
	p.submitted++
	p.mu.Unlock()

	select {
	case p.queue <- j:
		metrics.PoolJobsTotal.WithLabelValues("submitted").Inc()
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		p.submitted--
		p.mu.Unlock()
		p.inflight.Done()
		return fmt.Errorf("waiting for queue space: %w", ctx.Err())
	}
}

// Submit schedules fn on p. The returned future's context derives from
// ctx, so cancelling ctx cancels the task.
func Submit[T any](ctx context.Context, p *ThreadPool, fn Task[T]) (*Future[T], error) {
	return submit(ctx, p, 0, fn, nil)
}

func submit[T any](ctx context.Context, p *ThreadPool, index int, fn Task[T], notify chan<- *Future[T]) (*Future[T], error) {
	if fn == nil {
		return nil, errors.New("nil task")
	}
	f := newFuture(ctx, p, index, fn, notify)
	if err := p.enqueue(ctx, f); err != nil {
		f.cancel()
		return nil, err
	}
	return f, nil
}

func (p *ThreadPool) jobFinished(d time.Duration, err error) {
	p.mu.Lock()
	if err != nil {
		p.failed++
	} else {
		p.completed++
	}
	if p.windowLen == durationWindow {
		p.windowSum -= p.window[p.windowPos]
	} else {
		p.windowLen++
	}
	p.window[p.windowPos] = d
	p.windowSum += d
	p.windowPos = (p.windowPos + 1) % durationWindow
	p.mu.Unlock()

	if err != nil {
		metrics.PoolJobsTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.PoolJobsTotal.WithLabelValues("completed").Inc()
	}
	metrics.PoolJobDuration.Observe(d.Seconds())
	p.inflight.Done()
}

func (p *ThreadPool) jobCancelled() {
	p.mu.Lock()
	p.cancelled++
	p.mu.Unlock()

	metrics.PoolJobsTotal.WithLabelValues("cancelled").Inc()
	p.inflight.Done()
}

func (p *ThreadPool) pending() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitted - p.completed - p.failed - p.cancelled
}

// WaitForCompletion polls until no submitted job is outstanding or the
// timeout elapses. It returns false on timeout and has no side effects.
func (p *ThreadPool) WaitForCompletion(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if p.pending() == 0 {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		time.Sleep(min(10*time.Millisecond, remaining))
	}
}

// Shutdown stops accepting work. With wait it blocks until every queued
// and running job has finished. Without wait, queued jobs are cancelled
// and running jobs are left to finish in the background.
func (p *ThreadPool) Shutdown(wait bool) {
	p.lifecycle.Lock()
	if !p.running {
		p.stopped = true
		p.lifecycle.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	if !wait {
		p.abandon.Store(true)
	}
	close(p.queue)
	p.lifecycle.Unlock()

	release := func() {
		<-p.dispatchDone
		p.inflight.Wait()
		p.workers.Release()
	}

	if wait {
		logging.Info("Worker pool draining %d pending jobs", p.pending())
		release()
		logging.Info("Worker pool stopped")
		return
	}

	logging.Info("Worker pool stopping, abandoning queued jobs")
	go release()
}
