// Package startup handles configuration loading and lifecycle logging for
// the imagepipeline command.
//
// # Configuration
//
// [LoadConfig] reads an optional YAML file and then the environment; an
// environment variable always wins over the file. Supported variables:
//
//   - PIPELINE_WORKERS: worker count (default: sized from CPUs and memory)
//   - PIPELINE_QUEUE_SIZE: pending job limit (default: 50 per worker)
//   - CACHE_KEY_STRATEGY: mtime_size or content_hash (default: mtime_size)
//   - DEFAULT_PRESETS: comma separated presets used when a thumbnail run names none
//   - USE_VIPS: decode through libvips when available (default: true)
//   - MAX_IMAGE_DIMENSION, MAX_IMAGE_PIXELS: decode limits
//   - DATABASE_PATH: batch history database; empty disables history
//   - METRICS_ENABLED, METRICS_ADDR: Prometheus endpoint (default: off, :9090)
//   - MEMORY_HIGH_WATER_MARK, MEMORY_CRITICAL_WATER_MARK: backpressure ratios
//   - SHUTDOWN_TIMEOUT: how long to wait for running jobs on SIGINT/SIGTERM
//   - LOG_LEVEL, DEBUG: see package logging
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogBanner]: banner, build and system information
//   - [LogImagingInit]: libvips availability
//   - [LogPoolInit]: worker pool sizing
//   - [LogDatabaseInit]: history database timing
//   - [LogServerStarted]: metrics server endpoints
//   - [LogShutdownInitiated], [LogShutdownComplete]: graceful shutdown
package startup
