// Package metrics provides Prometheus instrumentation for the image pipeline.
//
// All metrics are registered with promauto at package init and prefixed with
// "media_pipeline_". The cmd binary serves them on /metrics when
// METRICS_ENABLED is set.
//
// # Metric Categories
//
// ## Worker Pool
//
//   - PoolWorkers: Gauge of workers by state (max, active, idle, live)
//   - PoolQueueDepth, PoolQueueCapacity: Gauges of the bounded job queue
//   - PoolPendingJobs: Gauge of submitted but unfinished jobs
//   - PoolJobsTotal: Counter of jobs by status
//   - PoolJobDuration: Histogram of job durations
//   - PoolAverageJobDuration: Gauge of the rolling average over 1000 jobs
//
// ## Thumbnails and Cache
//
//   - ThumbnailGenerationsTotal: Counter by result status
//   - ThumbnailGenerationDuration: Histogram by phase (decode, resize, enhance, encode, total)
//   - ThumbnailImageDecodeByFormat: Counter of decoded sources by format
//   - ThumbnailVipsFallbacks: Counter of libvips failures recovered in pure Go
//   - ThumbnailCacheHits, ThumbnailCacheMisses, ThumbnailCacheEvictions
//   - ThumbnailCacheCorruptions: Counter of unreadable index files that were reset
//   - ThumbnailCacheEntries: Gauge of index size per output directory
//
// ## Quality
//
//   - QualityIssuesTotal: Counter by issue
//   - QualityAnalysisDuration: Histogram
//   - EnhancementsAppliedTotal: Counter by enhancement type
//
// ## Batches
//
//   - BatchRunsTotal: Counter by kind and final status
//   - BatchDuration: Histogram by kind
//   - BatchItemsTotal: Counter of work units by kind and outcome
//   - BatchInProgress: Gauge
//   - BatchBytesSaved: Counter by kind
//
// ## Database, Memory, Filesystem
//
//   - DBQueryTotal, DBQueryDuration: batch history store queries
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses, ProcessRSSBytes
//   - FilesystemRetry*, FilesystemStaleErrors: NFS retry behaviour
//   - FilesystemAtomicWrites: temp file and rename writes
//
// # Collector
//
// Pool gauges are sampled rather than updated inline. [Collector] polls a
// [StatsProvider] (the worker pool) on an interval:
//
//	collector := metrics.NewCollector(pool, 5*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// # Initialization
//
// [InitializeMetrics] touches every known label combination so series exist
// from the first scrape.
package metrics
