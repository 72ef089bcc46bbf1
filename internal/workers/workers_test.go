package workers

import (
	"runtime"
	"testing"
)

func TestAutoConfigure(t *testing.T) {
	tests := []struct {
		name        string
		cpus        int
		memory      uint64
		wantWorkers int
	}{
		{name: "2 CPUs, 8 GiB", cpus: 2, memory: 8 * GiB, wantWorkers: 4},
		{name: "4 CPUs, 8 GiB", cpus: 4, memory: 8 * GiB, wantWorkers: 8},
		{name: "16 CPUs, 8 GiB capped at 16", cpus: 16, memory: 8 * GiB, wantWorkers: 16},
		{name: "8 CPUs, 2 GiB low memory cap", cpus: 8, memory: 2 * GiB, wantWorkers: 4},
		{name: "1 CPU, 2 GiB below cap", cpus: 1, memory: 2 * GiB, wantWorkers: 2},
		{name: "exactly 4 GiB is not low memory", cpus: 8, memory: 4 * GiB, wantWorkers: 16},
		{name: "exactly 16 GiB is not high memory", cpus: 12, memory: 16 * GiB, wantWorkers: 16},
		{name: "4 CPUs, 32 GiB high memory", cpus: 4, memory: 32 * GiB, wantWorkers: 16},
		{name: "6 CPUs, 32 GiB high memory", cpus: 6, memory: 32 * GiB, wantWorkers: 24},
		{name: "16 CPUs, 64 GiB capped at 32", cpus: 16, memory: 64 * GiB, wantWorkers: 32},
		{name: "unknown memory", cpus: 3, memory: 0, wantWorkers: 6},
		{name: "zero CPUs treated as one", cpus: 0, memory: 8 * GiB, wantWorkers: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoConfigure(tt.cpus, tt.memory)
			if got.MaxWorkers != tt.wantWorkers {
				t.Errorf("AutoConfigure(%d, %d).MaxWorkers = %d, want %d", tt.cpus, tt.memory, got.MaxWorkers, tt.wantWorkers)
			}
			if got.QueueSize != tt.wantWorkers*QueuePerWorker {
				t.Errorf("QueueSize = %d, want %d", got.QueueSize, tt.wantWorkers*QueuePerWorker)
			}
		})
	}
}

func TestWithOverrides(t *testing.T) {
	base := AutoConfigure(4, 8*GiB)

	tests := []struct {
		name        string
		workers     int
		queue       int
		wantWorkers int
		wantQueue   int
	}{
		{name: "no overrides", wantWorkers: 8, wantQueue: 400},
		{name: "workers only", workers: 3, wantWorkers: 3, wantQueue: 150},
		{name: "queue only", queue: 10, wantWorkers: 8, wantQueue: 10},
		{name: "both", workers: 2, queue: 5, wantWorkers: 2, wantQueue: 5},
		{name: "negative ignored", workers: -1, queue: -1, wantWorkers: 8, wantQueue: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.WithOverrides(tt.workers, tt.queue)
			if got.MaxWorkers != tt.wantWorkers || got.QueueSize != tt.wantQueue {
				t.Errorf("WithOverrides(%d, %d) = %d/%d, want %d/%d",
					tt.workers, tt.queue, got.MaxWorkers, got.QueueSize, tt.wantWorkers, tt.wantQueue)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	s := Detect()

	if s.CPUs != runtime.GOMAXPROCS(0) {
		t.Errorf("Detect().CPUs = %d, want GOMAXPROCS %d", s.CPUs, runtime.GOMAXPROCS(0))
	}
	if s.MaxWorkers < 1 || s.MaxWorkers > highLimit {
		t.Errorf("Detect().MaxWorkers = %d, want 1..%d", s.MaxWorkers, highLimit)
	}
	if s.QueueSize != s.MaxWorkers*QueuePerWorker {
		t.Errorf("Detect().QueueSize = %d, want %d", s.QueueSize, s.MaxWorkers*QueuePerWorker)
	}
}
