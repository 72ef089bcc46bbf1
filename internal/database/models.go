package database

import (
	"time"

	"media-pipeline/internal/model"
)

// RunRecord is the stored summary of one batch run, without its results.
type RunRecord struct {
	TaskID         string           `json:"taskId"`
	Kind           model.JobKind    `json:"kind"`
	Status         model.TaskStatus `json:"status"`
	TotalInputs    int              `json:"totalInputs"`
	TotalWorkUnits int              `json:"totalWorkUnits"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
	Skipped        int              `json:"skipped"`
	Cached         int              `json:"cached"`
	OriginalBytes  int64            `json:"originalBytes"`
	OutputBytes    int64            `json:"outputBytes"`
	ItemsPerSecond float64          `json:"itemsPerSecond"`
	SuccessRate    float64          `json:"successRate"`
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt"`
	Duration       time.Duration    `json:"duration"`
}

// BytesSaved mirrors model.BatchSummary.BytesSaved.
func (r RunRecord) BytesSaved() int64 {
	return r.OriginalBytes - r.OutputBytes
}

type HistoryStats struct {
	TotalRuns      int       `json:"totalRuns"`
	TotalWorkUnits int       `json:"totalWorkUnits"`
	TotalFailed    int       `json:"totalFailed"`
	LastRun        time.Time `json:"lastRun"`
}
