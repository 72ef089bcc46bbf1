package workers

import (
	"runtime"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/memory"
)

const (
	// GiB is one gibibyte, the unit of the memory thresholds below.
	GiB = 1 << 30

	// LowMemoryThreshold is the host memory below which the pool is capped.
	LowMemoryThreshold = 4 * GiB

	// HighMemoryThreshold is the host memory above which the pool may grow.
	HighMemoryThreshold = 16 * GiB

	// QueuePerWorker is the number of queued jobs allowed per worker.
	QueuePerWorker = 50

	baseLimit      = 16
	lowMemoryLimit = 4
	highLimit      = 32
)

// Sizing is the result of the worker sizing policy.
type Sizing struct {
	MaxWorkers  int
	QueueSize   int
	CPUs        int
	TotalMemory uint64
}

// AutoConfigure applies the sizing policy for a host with the given CPU
// count and total memory in bytes. A totalMemory of 0 means unknown and
// leaves the CPU-derived size untouched.
//
//	max = min(cpus*2, 16)
//	memory < 4 GiB  -> max = min(max, 4)
//	memory > 16 GiB -> max = min(cpus*2*2, 32)
//	queue = 50 * max
func AutoConfigure(cpus int, totalMemory uint64) Sizing {
	if cpus < 1 {
		cpus = 1
	}

	maxWorkers := min(cpus*2, baseLimit)

	switch {
	case totalMemory == 0:
	case totalMemory < LowMemoryThreshold:
		maxWorkers = min(maxWorkers, lowMemoryLimit)
	case totalMemory > HighMemoryThreshold:
		maxWorkers = min(cpus*2*2, highLimit)
	}

	return Sizing{
		MaxWorkers:  maxWorkers,
		QueueSize:   maxWorkers * QueuePerWorker,
		CPUs:        cpus,
		TotalMemory: totalMemory,
	}
}

// Detect sizes the pool for the current host. The CPU count comes from
// GOMAXPROCS so container CPU limits are respected.
func Detect() Sizing {
	cpus := runtime.GOMAXPROCS(0)

	total, err := memory.HostTotal()
	if err != nil {
		logging.Warn("Could not read host memory, sizing pool from CPU count only: %v", err)
		total = 0
	}

	s := AutoConfigure(cpus, total)
	logging.Debug("Pool sizing: cpus=%d memory=%.1f GiB workers=%d queue=%d",
		s.CPUs, float64(s.TotalMemory)/GiB, s.MaxWorkers, s.QueueSize)
	return s
}

// WithOverrides replaces the computed worker count and queue size with
// operator supplied values. Zero keeps the computed value; an overridden
// worker count without a queue size gets the default queue ratio.
func (s Sizing) WithOverrides(workers, queue int) Sizing {
	if workers > 0 {
		s.MaxWorkers = workers
		s.QueueSize = workers * QueuePerWorker
	}
	if queue > 0 {
		s.QueueSize = queue
	}
	return s
}
