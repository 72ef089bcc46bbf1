package pool

import (
	"time"

	"media-pipeline/internal/memory"
	"media-pipeline/internal/metrics"
)

// Stats is a point-in-time view of the pool.
type Stats struct {
	Running            bool          `json:"running"`
	MaxWorkers         int           `json:"max_workers"`
	ActiveWorkers      int           `json:"active_workers"`
	IdleWorkers        int           `json:"idle_workers"`
	LiveWorkers        int           `json:"live_workers"`
	QueueCapacity      int           `json:"queue_capacity"`
	Queued             int           `json:"queued"`
	Submitted          int64         `json:"submitted"`
	Completed          int64         `json:"completed"`
	Failed             int64         `json:"failed"`
	Cancelled          int64         `json:"cancelled"`
	Pending            int64         `json:"pending"`
	AverageJobDuration time.Duration `json:"average_job_duration"`
	MemoryRSSBytes     uint64        `json:"memory_rss_bytes"`
	Uptime             time.Duration `json:"uptime"`
}

// Stats returns current counters, worker usage and process memory.
// AverageJobDuration covers the most recent 1000 completions.
func (p *ThreadPool) Stats() Stats {
	s := Stats{
		MaxWorkers:    p.cfg.MaxWorkers,
		QueueCapacity: p.cfg.QueueSize,
	}

	p.lifecycle.RLock()
	s.Running = p.running
	if p.queue != nil {
		s.Queued = len(p.queue)
	}
	if p.workers != nil {
		s.LiveWorkers = p.workers.Running()
	}
	p.lifecycle.RUnlock()

	s.ActiveWorkers = int(p.active.Load())
	s.IdleWorkers = max(s.MaxWorkers-s.ActiveWorkers, 0)

	p.mu.Lock()
	s.Submitted = p.submitted
	s.Completed = p.completed
	s.Failed = p.failed
	s.Cancelled = p.cancelled
	s.Pending = p.submitted - p.completed - p.failed - p.cancelled
	if p.windowLen > 0 {
		s.AverageJobDuration = p.windowSum / time.Duration(p.windowLen)
	}
	if !p.startedAt.IsZero() {
		s.Uptime = time.Since(p.startedAt)
	}
	p.mu.Unlock()

	if rss, err := memory.ProcessRSS(); err == nil {
		s.MemoryRSSBytes = rss
	}

	return s
}

// MetricsSnapshot implements metrics.StatsProvider.
func (p *ThreadPool) MetricsSnapshot() metrics.PoolSnapshot {
	s := p.Stats()
	return metrics.PoolSnapshot{
		MaxWorkers:         s.MaxWorkers,
		ActiveWorkers:      s.ActiveWorkers,
		IdleWorkers:        s.IdleWorkers,
		LiveWorkers:        s.LiveWorkers,
		Queued:             s.Queued,
		QueueCapacity:      s.QueueCapacity,
		Pending:            s.Pending,
		AverageJobDuration: s.AverageJobDuration,
		RSSBytes:           s.MemoryRSSBytes,
	}
}
