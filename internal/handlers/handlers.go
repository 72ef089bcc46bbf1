package handlers

import (
	"context"
	"time"

	"media-pipeline/internal/database"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pipeline"
)

// PerformanceSource is implemented by *pipeline.Service.
type PerformanceSource interface {
	PerformanceMetrics() pipeline.PerformanceMetrics
}

// HistoryStore is implemented by *database.Database.
type HistoryStore interface {
	RecentRuns(ctx context.Context, kind model.JobKind, limit int) ([]database.RunRecord, error)
	GetRun(ctx context.Context, taskID string) (*database.RunRecord, error)
	RunResults(ctx context.Context, taskID string) ([]model.JobResult, error)
}

// PressureSource is implemented by *memory.Monitor.
type PressureSource interface {
	IsPaused() bool
}

// Handlers serves the status API of a running pipeline.
type Handlers struct {
	perf      PerformanceSource
	history   HistoryStore
	memory    PressureSource
	startedAt time.Time
}

// New creates the handlers. history and mem may be nil when batch history
// or the memory monitor are disabled.
func New(perf PerformanceSource, history HistoryStore, mem PressureSource) *Handlers {
	return &Handlers{
		perf:      perf,
		history:   history,
		memory:    mem,
		startedAt: time.Now(),
	}
}
