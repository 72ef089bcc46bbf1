package memory

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"
)

// Config holds memory management configuration
type Config struct {
	// MemoryLimitBytes is the soft memory limit. When 0 the monitor uses
	// GOMEMLIMIT if set, otherwise the host's physical memory.
	MemoryLimitBytes int64

	// HighWaterMark is the usage ratio below which a paused monitor resumes (0.0-1.0)
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which dispatching pauses (0.0-1.0)
	CriticalWaterMark float64

	// CheckInterval is how often to sample memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns the default watermarks
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Source describes what the monitor compares against its limit.
type Source string

const (
	// SourceHeap compares Go heap allocation with GOMEMLIMIT or an explicit limit.
	SourceHeap Source = "heap"
	// SourceRSS compares process RSS with the host's physical memory.
	SourceRSS Source = "rss"
	// SourceNone disables backpressure.
	SourceNone Source = "none"
)

// Monitor samples memory usage and pauses job dispatching when usage
// crosses the critical watermark. Dispatch resumes once usage drops
// below the high watermark.
type Monitor struct {
	config   Config
	limit    int64
	source   Source
	sample   func() uint64
	stopOnce sync.Once
	stopChan chan struct{}

	mu        sync.RWMutex
	current   uint64
	isPaused  bool
	pauseChan chan struct{}
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	m := &Monitor{
		config:    config,
		limit:     config.MemoryLimitBytes,
		source:    SourceHeap,
		stopChan:  make(chan struct{}),
		pauseChan: make(chan struct{}),
	}
	m.sample = heapAlloc

	if m.limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			m.limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %s", formatBytes(m.limit))
		}
	}

	if m.limit == 0 {
		if total, err := HostTotal(); err == nil && total > 0 && total < math.MaxInt64 {
			m.limit = int64(total)
			m.source = SourceRSS
			m.sample = processRSS
			logging.Info("Memory monitor using host memory: %s", formatBytes(m.limit))
		}
	}

	if m.limit == 0 {
		m.source = SourceNone
		logging.Warn("Memory monitor: no memory limit available, backpressure disabled")
	}

	return m
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

func processRSS() uint64 {
	rss, err := ProcessRSS()
	if err != nil {
		return 0
	}
	return rss
}

// Source reports which measurement the monitor uses.
func (m *Monitor) Source() Source {
	return m.source
}

// Start begins monitoring memory usage
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop stops the monitor and releases any goroutine blocked in WaitIfPaused.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.observe(m.sample())
		case <-m.stopChan:
			return
		}
	}
}

// observe records a usage sample and updates the paused state.
func (m *Monitor) observe(current uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = current
	if m.limit <= 0 {
		return
	}

	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.isPaused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing job dispatch", usage*100)
		m.isPaused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.isPaused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming job dispatch", usage*100)
		m.isPaused = false
		metrics.MemoryPaused.Set(0)
		close(m.pauseChan)
		m.pauseChan = make(chan struct{})
	}
}

// WaitIfPaused blocks while memory usage is critical.
// Returns false if the monitor was stopped while waiting.
func (m *Monitor) WaitIfPaused() bool {
	m.mu.RLock()
	if !m.isPaused {
		m.mu.RUnlock()
		return true
	}
	pauseChan := m.pauseChan
	m.mu.RUnlock()

	select {
	case <-pauseChan:
		return true
	case <-m.stopChan:
		return false
	}
}

// ShouldThrottle returns true if memory usage is above the high water mark
func (m *Monitor) ShouldThrottle() bool {
	if m.limit == 0 {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return float64(m.current) >= float64(m.limit)*m.config.HighWaterMark
}

// IsPaused returns true if dispatching is paused
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// GetStats returns the last sample, the limit and their ratio
func (m *Monitor) GetStats() (current, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentInt64 := int64(math.MaxInt64)
	if m.current <= math.MaxInt64 {
		currentInt64 = int64(m.current)
	}

	if m.limit > 0 {
		usage = float64(m.current) / float64(m.limit)
	}

	return currentInt64, m.limit, usage
}
