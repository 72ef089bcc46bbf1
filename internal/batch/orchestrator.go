package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-pipeline/internal/filesystem"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pool"
)

// Unit is one piece of work derived from an input. Failures are reported
// in the result.
type Unit func(ctx context.Context) model.JobResult

// Job describes a batch run.
type Job struct {
	Kind   model.JobKind
	Inputs []string
	// Expand returns the work units of one input, for example one per
	// thumbnail spec.
	Expand func(source string) []Unit
	// Observer, when set, receives progress after every change.
	Observer Observer
}

// Orchestrator fans batch jobs out over a pool and aggregates the results.
type Orchestrator struct {
	pool   *pool.ThreadPool
	exists func(path string) bool
}

// NewOrchestrator creates an orchestrator submitting to p.
func NewOrchestrator(p *pool.ThreadPool) *Orchestrator {
	return &Orchestrator{pool: p, exists: filesystem.Exists}
}

// Run executes every unit of job and returns the summary. Inputs that do
// not exist are skipped. A failure to orchestrate (the pool refusing work)
// fails the task and is returned alongside the partial summary; individual
// unit failures only appear in the summary.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*model.BatchSummary, error) {
	if job.Expand == nil {
		return nil, errors.New("batch job has no expand function")
	}

	task := NewTask(job.Kind, job.Observer)
	summary := &model.BatchSummary{
		TaskID:      task.ID(),
		Kind:        job.Kind,
		Status:      model.StatusPending,
		TotalInputs: len(job.Inputs),
		StartedAt:   time.Now(),
	}

	metrics.BatchInProgress.Inc()
	defer metrics.BatchInProgress.Dec()

	var tasks []pool.Task[model.JobResult]
	var sources []string
	for _, input := range job.Inputs {
		units := job.Expand(input)
		summary.TotalWorkUnits += len(units)

		if !o.exists(input) {
			logging.Warn("Skipping missing input %s", input)
			summary.Skipped += len(units)
			summary.SkippedPaths = append(summary.SkippedPaths, input)
			continue
		}
		for _, u := range units {
			tasks = append(tasks, wrap(u))
			sources = append(sources, input)
		}
	}

	if err := task.Start(summary.TotalWorkUnits); err != nil {
		return nil, err
	}
	if summary.Skipped > 0 {
		task.Advance(summary.Skipped, fmt.Sprintf("Skipped %d missing inputs", len(summary.SkippedPaths)))
	}

	logging.Info("Batch %s (%s): %d inputs, %d work units, %d skipped",
		task.ID(), job.Kind, summary.TotalInputs, summary.TotalWorkUnits, summary.Skipped)

	delivered := make([]bool, len(tasks))
	var itemTime time.Duration

	b := pool.BatchExecute(ctx, o.pool, tasks)
	for f := range b.Results() {
		delivered[f.Index()] = true

		result, err := f.Result()
		if err != nil {
			result = model.JobResult{Kind: job.Kind, SourcePath: sources[f.Index()]}.WithError(err)
		}
		if result.Kind == "" {
			result.Kind = job.Kind
		}
		itemTime += result.Duration
		o.record(summary, result)

		done := summary.Successful + summary.Failed + summary.Skipped
		task.Advance(1, fmt.Sprintf("Processed %d/%d", done, summary.TotalWorkUnits))
	}

	runErr := b.Err()
	if runErr != nil {
		// Units that were never submitted still count towards the total.
		for i, ok := range delivered {
			if ok {
				continue
			}
			o.record(summary, model.JobResult{Kind: job.Kind, SourcePath: sources[i]}.WithError(runErr))
			task.Advance(1, "")
		}
	}

	finish(summary, itemTime)

	if runErr != nil {
		_ = task.Fail(runErr)
		summary.Status = task.Status()
		metrics.BatchRunsTotal.WithLabelValues(string(job.Kind), string(summary.Status)).Inc()
		logging.Error("Batch %s failed: %v", task.ID(), runErr)
		return summary, fmt.Errorf("batch %s: %w", task.ID(), runErr)
	}

	_ = task.Complete(fmt.Sprintf("Completed %d/%d successfully", summary.Successful, summary.TotalWorkUnits))
	summary.Status = task.Status()
	metrics.BatchRunsTotal.WithLabelValues(string(job.Kind), string(summary.Status)).Inc()
	metrics.BatchDuration.WithLabelValues(string(job.Kind)).Observe(summary.Duration.Seconds())
	if saved := summary.BytesSaved(); saved > 0 && (job.Kind == model.KindOptimize || job.Kind == model.KindEnhance) {
		metrics.BatchBytesSaved.WithLabelValues(string(job.Kind)).Add(float64(saved))
	}

	logging.Info("Batch %s completed in %v: %d succeeded (%d cached), %d failed, %d skipped",
		task.ID(), summary.Duration, summary.Successful, summary.Cached, summary.Failed, summary.Skipped)
	return summary, nil
}

// record folds one result into the summary counters.
func (o *Orchestrator) record(s *model.BatchSummary, r model.JobResult) {
	s.Results = append(s.Results, r)

	kind := string(s.Kind)
	switch {
	case !r.Success:
		s.Failed++
		metrics.BatchItemsTotal.WithLabelValues(kind, "failed").Inc()
	case r.Cached:
		s.Successful++
		s.Cached++
		metrics.BatchItemsTotal.WithLabelValues(kind, "cached").Inc()
	default:
		s.Successful++
		metrics.BatchItemsTotal.WithLabelValues(kind, "success").Inc()
	}

	if r.Success && r.OriginalSize > 0 && r.OutputSize > 0 {
		s.OriginalBytes += r.OriginalSize
		s.OutputBytes += r.OutputSize
	}
}

// finish computes the closing timestamps and rates.
func finish(s *model.BatchSummary, itemTime time.Duration) {
	s.FinishedAt = time.Now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)

	if s.Skipped > 0 {
		metrics.BatchItemsTotal.WithLabelValues(string(s.Kind), "skipped").Add(float64(s.Skipped))
	}

	processed := s.Successful + s.Failed
	if processed > 0 {
		s.AverageItemDuration = itemTime / time.Duration(processed)
	}
	if secs := s.Duration.Seconds(); secs > 0 {
		s.ItemsPerSecond = float64(processed) / secs
	}
	if s.TotalWorkUnits > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalWorkUnits)
	}
}

func wrap(u Unit) pool.Task[model.JobResult] {
	return func(ctx context.Context) (model.JobResult, error) {
		return u(ctx), nil
	}
}
