package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, state := range []string{"max", "active", "idle", "live"} {
		PoolWorkers.WithLabelValues(state)
	}
	for _, status := range []string{"submitted", "completed", "failed", "cancelled"} {
		PoolJobsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "cached", "error_invalid", "error_not_found", "error_decode", "error_encode", "cancelled"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}
	for _, phase := range []string{"decode", "resize", "enhance", "encode", "total"} {
		ThumbnailGenerationDuration.WithLabelValues(phase)
	}
	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "unknown"} {
		ThumbnailImageDecodeByFormat.WithLabelValues(format)
	}

	for _, kind := range []string{"thumbnails", "optimize", "analyze", "enhance"} {
		for _, status := range []string{"completed", "failed"} {
			BatchRunsTotal.WithLabelValues(kind, status)
		}
		for _, outcome := range []string{"success", "failed", "skipped", "cached"} {
			BatchItemsTotal.WithLabelValues(kind, outcome)
		}
		BatchDuration.WithLabelValues(kind)
	}

	for _, op := range []string{"initialize_schema", "save_run", "save_results", "recent_runs", "run_results"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}
	for _, table := range []string{"batch_runs", "batch_results"} {
		DBRowsWritten.WithLabelValues(table)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
	for _, status := range []string{"success", "error"} {
		FilesystemAtomicWrites.WithLabelValues(status)
	}
}
