package model

import "time"

// JobKind names the operation a batch performs.
type JobKind string

const (
	KindThumbnails JobKind = "thumbnails"
	KindOptimize   JobKind = "optimize"
	KindAnalyze    JobKind = "analyze"
	KindEnhance    JobKind = "enhance"
)

// JobResult is the outcome of one work unit.
type JobResult struct {
	Kind         JobKind           `json:"kind"`
	Success      bool              `json:"success"`
	SourcePath   string            `json:"source_path"`
	OutputPaths  []string          `json:"output_paths,omitempty"`
	Spec         string            `json:"spec,omitempty"`
	Cached       bool              `json:"cached,omitempty"`
	Duration     time.Duration     `json:"duration"`
	OriginalSize int64             `json:"original_size,omitempty"`
	OutputSize   int64             `json:"output_size,omitempty"`
	SizeDelta    int64             `json:"size_delta,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	Issues       []QualityIssue    `json:"issues,omitempty"`
	Enhancements []EnhancementType `json:"enhancements,omitempty"`
	Analysis     *QualityAnalysis  `json:"analysis,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// WithError returns a copy of r marked failed with err's message.
func (r JobResult) WithError(err error) JobResult {
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// BatchSummary aggregates the results of one batch run.
// Successful + Failed + Skipped always equals TotalWorkUnits.
type BatchSummary struct {
	TaskID              string        `json:"task_id"`
	Kind                JobKind       `json:"kind"`
	Status              TaskStatus    `json:"status"`
	TotalInputs         int           `json:"total_inputs"`
	TotalWorkUnits      int           `json:"total_work_units"`
	Successful          int           `json:"successful"`
	Failed              int           `json:"failed"`
	Skipped             int           `json:"skipped"`
	Cached              int           `json:"cached"`
	SkippedPaths        []string      `json:"skipped_paths,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	FinishedAt          time.Time     `json:"finished_at"`
	Duration            time.Duration `json:"duration"`
	AverageItemDuration time.Duration `json:"average_item_duration"`
	ItemsPerSecond      float64       `json:"items_per_second"`
	SuccessRate         float64       `json:"success_rate"`
	OriginalBytes       int64         `json:"original_bytes"`
	OutputBytes         int64         `json:"output_bytes"`
	Results             []JobResult   `json:"results"`
}

// BytesSaved is the reduction in size across all successful results.
// Negative when outputs grew.
func (s *BatchSummary) BytesSaved() int64 {
	return s.OriginalBytes - s.OutputBytes
}

// CacheEntry records one generated thumbnail in a cache index.
type CacheEntry struct {
	Key           string    `json:"key"`
	SourcePath    string    `json:"source_path"`
	OutputPath    string    `json:"output_path"`
	SpecSignature string    `json:"spec_signature"`
	SourceModTime time.Time `json:"source_mtime"`
	SourceSize    int64     `json:"source_size"`
	CreatedAt     time.Time `json:"created_at"`
	Size          int64     `json:"size"`
}
