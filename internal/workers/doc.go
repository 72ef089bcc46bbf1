/*
Package workers sizes the image processing pool for the host it runs on.

# Overview

Image decoding and resizing is CPU heavy but also reads and writes files,
so the pool runs two workers per CPU. Large decoded bitmaps make memory the
second constraint: small hosts are capped, large hosts get more headroom.

# Policy

	max_workers = min(cpus*2, 16)
	host memory <  4 GiB  ->  max_workers = min(max_workers, 4)
	host memory > 16 GiB  ->  max_workers = min(cpus*2*2, 32)
	queue_size  = 50 * max_workers

The CPU count is runtime.GOMAXPROCS(0) rather than runtime.NumCPU(), so a
container limited to 2 CPUs on a 64 core node gets 4 workers, not 32.
Host memory is read with gopsutil.

# Usage

	sizing := workers.Detect().WithOverrides(cfg.Workers, cfg.QueueSize)
	p, err := pool.New(pool.Config{
		MaxWorkers: sizing.MaxWorkers,
		QueueSize:  sizing.QueueSize,
	})

AutoConfigure is a pure function of its inputs and is what tests use.

# Overrides

PIPELINE_WORKERS and PIPELINE_QUEUE_SIZE (see the startup package) replace
the computed values. An overridden worker count without an explicit queue
size keeps the 50 jobs per worker ratio.
*/
package workers
