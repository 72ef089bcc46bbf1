package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu       sync.Mutex
	snapshot PoolSnapshot
	calls    int
}

func (m *mockStatsProvider) MetricsSnapshot() PoolSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.snapshot
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRecordPoolSnapshot(t *testing.T) {
	RecordPoolSnapshot(PoolSnapshot{
		MaxWorkers:         8,
		ActiveWorkers:      3,
		IdleWorkers:        5,
		LiveWorkers:        4,
		Queued:             12,
		QueueCapacity:      400,
		Pending:            15,
		AverageJobDuration: 250 * time.Millisecond,
		RSSBytes:           1 << 20,
	})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"max workers", testutil.ToFloat64(PoolWorkers.WithLabelValues("max")), 8},
		{"active workers", testutil.ToFloat64(PoolWorkers.WithLabelValues("active")), 3},
		{"idle workers", testutil.ToFloat64(PoolWorkers.WithLabelValues("idle")), 5},
		{"live workers", testutil.ToFloat64(PoolWorkers.WithLabelValues("live")), 4},
		{"queue depth", testutil.ToFloat64(PoolQueueDepth), 12},
		{"queue capacity", testutil.ToFloat64(PoolQueueCapacity), 400},
		{"pending", testutil.ToFloat64(PoolPendingJobs), 15},
		{"average duration", testutil.ToFloat64(PoolAverageJobDuration), 0.25},
		{"rss", testutil.ToFloat64(ProcessRSSBytes), 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{snapshot: PoolSnapshot{MaxWorkers: 2, Queued: 7}}

	collector := NewCollector(provider, 20*time.Millisecond)
	collector.Start()
	time.Sleep(70 * time.Millisecond)
	collector.Stop()

	// Initial collect, ticks and the final collect on stop.
	if n := provider.callCount(); n < 3 {
		t.Errorf("provider called %d times, want at least 3", n)
	}
	if got := testutil.ToFloat64(PoolQueueDepth); got != 7 {
		t.Errorf("queue depth gauge = %v, want 7", got)
	}

	// A second Stop must not block or panic.
	collector.Stop()
}

func TestCollectorNilProvider(t *testing.T) {
	collector := NewCollector(nil, 10*time.Millisecond)
	collector.Start()
	time.Sleep(25 * time.Millisecond)
	collector.Stop()
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics()

	if got := testutil.CollectAndCount(BatchRunsTotal); got != 8 {
		t.Errorf("BatchRunsTotal series = %d, want 8", got)
	}
}
