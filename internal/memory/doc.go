// Package memory keeps decoded bitmaps from exhausting the host.
//
// # Overview
//
// A batch of large source images decoded concurrently can use several
// gigabytes. The package provides three things:
//
//   - [ConfigureFromEnv] sets GOMEMLIMIT from a container memory limit
//   - [HostTotal], [HostAvailable] and [ProcessRSS] read host and process
//     memory through gopsutil, used for pool sizing and pool statistics
//   - [Monitor] samples usage and pauses job dispatch under pressure
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set
//   - MEMORY_LIMIT: container memory limit in bytes, typically from the
//     Kubernetes Downward API
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, default 0.85.
//     libvips, libwebp and SQLite allocate outside the heap, so heavy
//     vips usage wants a lower ratio.
//
// # Monitoring
//
// The monitor compares one of two measurements with a limit:
//
//	| Limit available            | Measurement   |
//	|----------------------------|---------------|
//	| explicit or GOMEMLIMIT     | Go heap alloc |
//	| neither (host memory used) | process RSS   |
//
// At CriticalWaterMark dispatch pauses and a GC is requested; it resumes
// once usage falls below HighWaterMark. The pool's dispatcher calls
// [Monitor.WaitIfPaused] before handing each job to a worker:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	p, _ := pool.New(cfg, pool.WithMemoryMonitor(monitor))
package memory
