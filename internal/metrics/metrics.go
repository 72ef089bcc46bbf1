package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker pool metrics
var (
	PoolWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_pipeline_pool_workers",
			Help: "Worker counts by state",
		},
		[]string{"state"}, // "max", "active", "idle", "live"
	)

	PoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_pool_queue_depth",
			Help: "Number of jobs waiting in the pool queue",
		},
	)

	PoolQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_pool_queue_capacity",
			Help: "Capacity of the pool queue",
		},
	)

	PoolPendingJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_pool_pending_jobs",
			Help: "Jobs submitted but not yet finished",
		},
	)

	PoolJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_pool_jobs_total",
			Help: "Total number of pool jobs by outcome",
		},
		[]string{"status"}, // "submitted", "completed", "failed", "cancelled"
	)

	PoolJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_pool_job_duration_seconds",
			Help:    "Duration of pool jobs in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PoolAverageJobDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_pool_average_job_duration_seconds",
			Help: "Rolling average duration of the last 1000 pool jobs",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_generations_total",
			Help: "Total number of thumbnail generations by result",
		},
		[]string{"status"}, // "success", "cached", "error_invalid", "error_not_found", "error_decode", "error_encode", "cancelled"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation phase duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // "decode", "resize", "enhance", "encode", "total"
	)

	ThumbnailImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_image_decode_total",
			Help: "Decoded source images by detected format",
		},
		[]string{"format"},
	)

	ThumbnailVipsFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_vips_fallbacks_total",
			Help: "Times the pure Go codec was used after a libvips failure",
		},
	)
)

// Cache metrics
var (
	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_cache_evictions_total",
			Help: "Stale cache entries removed on lookup",
		},
	)

	ThumbnailCacheCorruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_cache_corruptions_total",
			Help: "Cache index files that could not be parsed and were reset",
		},
	)

	ThumbnailCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_pipeline_thumbnail_cache_entries",
			Help: "Number of entries in a cache index",
		},
		[]string{"dir"},
	)
)

// Quality metrics
var (
	QualityIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_quality_issues_total",
			Help: "Quality issues detected by type",
		},
		[]string{"issue"},
	)

	QualityAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_quality_analysis_duration_seconds",
			Help:    "Duration of quality analysis in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	EnhancementsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_enhancements_applied_total",
			Help: "Enhancements applied by type",
		},
		[]string{"type"},
	)
)

// Batch metrics
var (
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_batch_runs_total",
			Help: "Batch runs by kind and final status",
		},
		[]string{"kind", "status"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_batch_duration_seconds",
			Help:    "Batch run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
		[]string{"kind"},
	)

	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_batch_items_total",
			Help: "Batch work units by kind and outcome",
		},
		[]string{"kind", "outcome"}, // "success", "failed", "skipped", "cached"
	)

	BatchInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_batch_in_progress",
			Help: "Number of batches currently running",
		},
	)

	BatchBytesSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_batch_bytes_saved_total",
			Help: "Bytes saved by optimize and enhance batches",
		},
		[]string{"kind"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_db_rows_written_total",
			Help: "Rows inserted into the history tables",
		},
		[]string{"table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_memory_usage_ratio",
			Help: "Memory usage as a ratio of the monitored limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_memory_paused",
			Help: "1 when job dispatch is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_memory_gc_pauses_total",
			Help: "Times dispatch was paused and a GC was forced",
		},
	)

	ProcessRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_process_rss_bytes",
			Help: "Resident set size of the process",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_filesystem_retry_attempts_total",
			Help: "Retries after stale NFS file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemAtomicWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_filesystem_atomic_writes_total",
			Help: "Atomic temp-file-and-rename writes by status",
		},
		[]string{"status"},
	)
)

// Status server metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_http_requests_total",
			Help: "Status server requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_http_request_duration_seconds",
			Help:    "Status server request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_http_requests_in_flight",
			Help: "Status server requests currently being served",
		},
	)
)

// Application info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_pipeline_app_info",
		Help: "Application information",
	},
	[]string{"version", "go_version", "vips"},
)
