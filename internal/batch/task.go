package batch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-pipeline/internal/model"
)

// Progress is a snapshot of a task handed to observers.
type Progress struct {
	TaskID    string           `json:"task_id"`
	Kind      model.JobKind    `json:"kind"`
	Status    model.TaskStatus `json:"status"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Percent   float64          `json:"percent"`
	Message   string           `json:"message"`
	Error     string           `json:"error,omitempty"`
}

// Observer receives progress snapshots. It is called synchronously from
// the goroutine draining results, so it should return quickly.
type Observer func(Progress)

// Task tracks the lifecycle and progress of one batch run.
type Task struct {
	id       string
	kind     model.JobKind
	observer Observer

	mu         sync.Mutex
	status     model.TaskStatus
	total      int
	completed  int
	percent    float64
	message    string
	err        error
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// NewTask creates a pending task with a fresh ID.
func NewTask(kind model.JobKind, observer Observer) *Task {
	return &Task{
		id:        uuid.NewString(),
		kind:      kind,
		observer:  observer,
		status:    model.StatusPending,
		message:   "Queued",
		createdAt: time.Now(),
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string {
	return t.id
}

// Status returns the current lifecycle state.
func (t *Task) Status() model.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the error that failed the task, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Snapshot returns the current progress.
func (t *Task) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() Progress {
	p := Progress{
		TaskID:    t.id,
		Kind:      t.kind,
		Status:    t.status,
		Completed: t.completed,
		Total:     t.total,
		Percent:   t.percent,
		Message:   t.message,
	}
	if t.err != nil {
		p.Error = t.err.Error()
	}
	return p
}

// Start moves the task to running with total work units.
func (t *Task) Start(total int) error {
	return t.update(func() error {
		if err := model.ValidateTransition(t.status, model.StatusRunning); err != nil {
			return err
		}
		t.status = model.StatusRunning
		t.total = total
		t.startedAt = time.Now()
		t.message = fmt.Sprintf("Processing %d work units", total)
		return nil
	})
}

// Advance records n more finished units. Progress never moves backwards.
func (t *Task) Advance(n int, message string) {
	_ = t.update(func() error {
		t.completed += n
		if t.total > 0 {
			pct := float64(t.completed) * 100 / float64(t.total)
			t.percent = max(t.percent, min(pct, 100))
		}
		if message != "" {
			t.message = message
		}
		return nil
	})
}

// Complete marks a running task completed.
func (t *Task) Complete(message string) error {
	return t.update(func() error {
		if err := model.ValidateTransition(t.status, model.StatusCompleted); err != nil {
			return err
		}
		t.status = model.StatusCompleted
		t.percent = 100
		t.finishedAt = time.Now()
		if message != "" {
			t.message = message
		}
		return nil
	})
}

// Fail marks the task failed with err.
func (t *Task) Fail(err error) error {
	return t.update(func() error {
		if verr := model.ValidateTransition(t.status, model.StatusFailed); verr != nil {
			return verr
		}
		t.status = model.StatusFailed
		t.err = err
		t.finishedAt = time.Now()
		t.message = fmt.Sprintf("Failed: %v", err)
		return nil
	})
}

// update applies fn under the lock and notifies the observer when it
// succeeds.
func (t *Task) update(fn func() error) error {
	t.mu.Lock()
	if err := fn(); err != nil {
		t.mu.Unlock()
		return err
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.observer != nil {
		t.observer(snap)
	}
	return nil
}
