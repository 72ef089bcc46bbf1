package metrics

import (
	"sync"
	"time"

	"media-pipeline/internal/logging"
)

// StatsProvider is implemented by the worker pool.
type StatsProvider interface {
	MetricsSnapshot() PoolSnapshot
}

// PoolSnapshot holds the pool values exported as gauges.
type PoolSnapshot struct {
	MaxWorkers         int
	ActiveWorkers      int
	IdleWorkers        int
	LiveWorkers        int
	Queued             int
	QueueCapacity      int
	Pending            int64
	AverageJobDuration time.Duration
	RSSBytes           uint64
}

// Collector periodically copies pool statistics into gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopOnce      sync.Once
	stopChan      chan struct{}
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop and waits for it to exit
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			c.collect()
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	s := c.statsProvider.MetricsSnapshot()
	RecordPoolSnapshot(s)

	logging.Debug("Pool metrics collected: active=%d/%d queued=%d pending=%d",
		s.ActiveWorkers, s.MaxWorkers, s.Queued, s.Pending)
}

// RecordPoolSnapshot writes a snapshot into the pool gauges.
func RecordPoolSnapshot(s PoolSnapshot) {
	PoolWorkers.WithLabelValues("max").Set(float64(s.MaxWorkers))
	PoolWorkers.WithLabelValues("active").Set(float64(s.ActiveWorkers))
	PoolWorkers.WithLabelValues("idle").Set(float64(s.IdleWorkers))
	PoolWorkers.WithLabelValues("live").Set(float64(s.LiveWorkers))
	PoolQueueDepth.Set(float64(s.Queued))
	PoolQueueCapacity.Set(float64(s.QueueCapacity))
	PoolPendingJobs.Set(float64(s.Pending))
	PoolAverageJobDuration.Set(s.AverageJobDuration.Seconds())
	if s.RSSBytes > 0 {
		ProcessRSSBytes.Set(float64(s.RSSBytes))
	}
}
