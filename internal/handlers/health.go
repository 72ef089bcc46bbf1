package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-pipeline/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStopped  = "stopped"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Pool info
	Workers         int    `json:"workers"`
	ActiveWorkers   int    `json:"activeWorkers"`
	Queued          int    `json:"queued"`
	Pending         int64  `json:"pending"`
	MemoryPaused    bool   `json:"memoryPaused"`
	BatchesRun      int64  `json:"batchesRun"`
	VipsAvailable   bool   `json:"vipsAvailable"`
	ProcessRSSBytes uint64 `json:"processRssBytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the pipeline. It answers 503
// when the pool no longer accepts work.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	perf := h.perf.PerformanceMetrics()

	response := HealthResponse{
		Ready:           perf.ThreadPool.Running,
		Version:         startup.Version,
		Uptime:          time.Since(h.startedAt).Round(time.Second).String(),
		Workers:         perf.ThreadPool.MaxWorkers,
		ActiveWorkers:   perf.ThreadPool.ActiveWorkers,
		Queued:          perf.ThreadPool.Queued,
		Pending:         perf.ThreadPool.Pending,
		BatchesRun:      perf.Jobs.Batches,
		VipsAvailable:   perf.Resources.VipsAvailable,
		ProcessRSSBytes: perf.Resources.ProcessRSSBytes,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}
	if h.memory != nil {
		response.MemoryPaused = h.memory.IsPaused()
	}

	switch {
	case !response.Ready:
		response.Status = statusStopped
	case response.MemoryPaused:
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	w.Header().Set("Content-Type", "application/json")
	if !response.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, response)
}

// LivenessCheck always returns 200 while the server is up
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only while the pool accepts work
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.perf.PerformanceMetrics().ThreadPool.Running {
		writeJSONStatus(w, http.StatusOK, "ready")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
}
