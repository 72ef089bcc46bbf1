// Package main provides the imagepipeline command line tool.
//
// imagepipeline runs batches of image work on a bounded worker pool:
// multi-size thumbnail generation backed by a persistent per-directory
// cache, re-encoding for size, quality analysis and enhancement.
//
// # Commands
//
//	imagepipeline thumbnails -out thumbs -presets small,square photos/
//	imagepipeline thumbnails -out thumbs -spec hero=1600x900:webp:80 a.jpg
//	imagepipeline optimize -out optimized -quality 80 -max-dimension 2048 photos/
//	imagepipeline analyze -json photos/
//	imagepipeline enhance -out enhanced -contrast 1.2 photos/
//	imagepipeline cache-stats thumbs
//	imagepipeline clear-cache thumbs
//	imagepipeline history [-kind thumbnails] [-limit 20] [-prune N] [task-id]
//	imagepipeline metrics
//	imagepipeline presets
//
// # Lifecycle
//
// A batch command:
//
//  1. Loads configuration from -config and the environment (see package startup)
//  2. Sets GOMEMLIMIT from the container limit
//  3. Starts libvips when USE_VIPS is set and the library is present
//  4. Sizes the pool from CPUs and memory unless PIPELINE_WORKERS is set
//  5. Starts the memory monitor, pool, metrics collector and, with
//     METRICS_ENABLED, the status server
//  6. Runs the batch with a progress bar on stderr
//  7. Records the summary in the history database and prints it
//  8. Drains the pool for at most SHUTDOWN_TIMEOUT and stops everything
//
// SIGINT and SIGTERM cancel the running batch. Work already running
// finishes; queued work is reported as failed with a cancellation error.
//
// # Status Server
//
// With METRICS_ENABLED=true the following endpoints are served on
// METRICS_ADDR for the life of the process:
//
//   - /metrics: Prometheus metrics
//   - /healthz, /livez, /readyz: health probes
//   - /version: build information
//   - /api/performance: pool, job and resource snapshot
//   - /api/history, /api/history/{id}: recorded batch runs
//
// # Exit Status
//
// 0 on success, 1 on error, 2 when a batch completed but some items failed.
package main
