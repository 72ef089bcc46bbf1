package pipeline

import (
	"runtime"
	"time"

	"media-pipeline/internal/media"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pool"
)

// JobMetrics are work unit totals across every batch the service ran.
type JobMetrics struct {
	Batches    int64 `json:"batches"`
	WorkUnits  int64 `json:"work_units"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Skipped    int64 `json:"skipped"`
	Cached     int64 `json:"cached"`
}

// Performance summarises throughput.
type Performance struct {
	AverageJobDuration time.Duration `json:"average_job_duration"`
	TotalBatchTime     time.Duration `json:"total_batch_time"`
	ItemsPerSecond     float64       `json:"items_per_second"`
	SuccessRate        float64       `json:"success_rate"`
	Uptime             time.Duration `json:"uptime"`
}

// Resources describes the host and process.
type Resources struct {
	ProcessRSSBytes    uint64 `json:"process_rss_bytes"`
	HostTotalBytes     uint64 `json:"host_total_bytes"`
	HostAvailableBytes uint64 `json:"host_available_bytes"`
	HeapAllocBytes     uint64 `json:"heap_alloc_bytes"`
	Goroutines         int    `json:"goroutines"`
	CPUs               int    `json:"cpus"`
	VipsAvailable      bool   `json:"vips_available"`
}

// PerformanceMetrics is a point-in-time snapshot of the service.
type PerformanceMetrics struct {
	ThreadPool  pool.Stats  `json:"thread_pool"`
	Jobs        JobMetrics  `json:"jobs"`
	Performance Performance `json:"performance"`
	Resources   Resources   `json:"resources"`
}

// recordBatch adds a finished batch to the job totals.
func (s *Service) recordBatch(summary *model.BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs.Batches++
	s.jobs.WorkUnits += int64(summary.TotalWorkUnits)
	s.jobs.Successful += int64(summary.Successful)
	s.jobs.Failed += int64(summary.Failed)
	s.jobs.Skipped += int64(summary.Skipped)
	s.jobs.Cached += int64(summary.Cached)
	s.batchTime += summary.Duration
}

// PerformanceMetrics returns pool statistics, job totals, throughput and
// resource usage.
func (s *Service) PerformanceMetrics() PerformanceMetrics {
	m := PerformanceMetrics{ThreadPool: s.pool.Stats()}

	s.mu.Lock()
	m.Jobs = s.jobs
	batchTime := s.batchTime
	s.mu.Unlock()

	processed := m.Jobs.Successful + m.Jobs.Failed
	m.Performance = Performance{
		AverageJobDuration: m.ThreadPool.AverageJobDuration,
		TotalBatchTime:     batchTime,
		Uptime:             time.Since(s.startedAt),
	}
	if secs := batchTime.Seconds(); secs > 0 {
		m.Performance.ItemsPerSecond = float64(processed) / secs
	}
	if m.Jobs.WorkUnits > 0 {
		m.Performance.SuccessRate = float64(m.Jobs.Successful) / float64(m.Jobs.WorkUnits)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Resources = Resources{
		ProcessRSSBytes: m.ThreadPool.MemoryRSSBytes,
		HeapAllocBytes:  ms.HeapAlloc,
		Goroutines:      runtime.NumGoroutine(),
		CPUs:            runtime.GOMAXPROCS(0),
		VipsAvailable:   media.IsVipsAvailable(),
	}
	if total, err := memory.HostTotal(); err == nil {
		m.Resources.HostTotalBytes = total
	}
	if avail, err := memory.HostAvailable(); err == nil {
		m.Resources.HostAvailableBytes = avail
	}
	return m
}
