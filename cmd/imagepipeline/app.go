package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"media-pipeline/internal/database"
	"media-pipeline/internal/handlers"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/media"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pipeline"
	"media-pipeline/internal/pool"
	"media-pipeline/internal/startup"
	"media-pipeline/internal/workers"
)

const collectInterval = 15 * time.Second

// app owns every long-lived component of one CLI invocation.
type app struct {
	cfg       *startup.Config
	monitor   *memory.Monitor
	pool      *pool.ThreadPool
	collector *metrics.Collector
	service   *pipeline.Service
	db        *database.Database
	server    *metricsServer
}

// newApp starts the pool and everything around it. The caller must call
// close.
func newApp(cfg *startup.Config, banner bool) (*app, error) {
	startTime := time.Now()
	if banner {
		startup.LogBanner()
	}

	memory.ConfigureFromEnv()

	if cfg.UseVips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go decoders: %v", err)
		}
	}
	startup.LogImagingInit(cfg.UseVips, media.IsVipsAvailable(), media.VipsVersion())

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, runtime.Version(), media.VipsVersion()).Set(1)

	sizing := workers.Detect().WithOverrides(cfg.Workers, cfg.QueueSize)
	startup.LogPoolInit(sizing.MaxWorkers, sizing.QueueSize, sizing.CPUs)

	a := &app{cfg: cfg}

	a.monitor = memory.NewMonitor(cfg.MemoryConfig())
	a.monitor.Start()

	p, err := pool.New(pool.Config{
		MaxWorkers: sizing.MaxWorkers,
		QueueSize:  sizing.QueueSize,
	}, pool.WithMemoryMonitor(a.monitor))
	if err != nil {
		a.close()
		return nil, err
	}
	if err := p.Start(); err != nil {
		a.close()
		return nil, err
	}
	a.pool = p

	a.collector = metrics.NewCollector(p, collectInterval)
	a.collector.Start()

	a.service = pipeline.NewService(p, cfg.PipelineConfig())

	if cfg.HistoryEnabled {
		if err := a.openHistory(); err != nil {
			logging.Warn("Batch history disabled: %v", err)
		}
	}

	if cfg.MetricsEnabled {
		var history handlers.HistoryStore
		if a.db != nil {
			history = a.db
		}
		h := handlers.New(a.service, history, a.monitor)
		a.server = newMetricsServer(cfg.MetricsAddr, h)
		a.server.start()
		startup.LogServerStarted(startup.ServerConfig{
			MetricsAddr:     cfg.MetricsAddr,
			StartupDuration: time.Since(startTime),
		})
	}

	return a, nil
}

func (a *app) openHistory() error {
	start := time.Now()
	db, err := database.New(context.Background(), a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.db = db
	startup.LogDatabaseInit(time.Since(start))
	return nil
}

// record stores a finished batch in the history, if enabled.
func (a *app) record(summary *model.BatchSummary) {
	if a.db == nil || summary == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.db.SaveSummary(ctx, summary); err != nil {
		logging.Warn("Failed to save batch %s to history: %v", summary.TaskID, err)
		return
	}
	a.db.UpdateDBMetrics()
}

// close stops components in reverse start order. In-flight work gets
// ShutdownTimeout to finish before queued jobs are abandoned.
func (a *app) close() {
	if a.server != nil {
		startup.LogShutdownStep("Stopping metrics server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.stop(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
		cancel()
	}

	if a.pool != nil {
		startup.LogShutdownStep("Draining worker pool")
		drained := a.pool.WaitForCompletion(a.cfg.ShutdownTimeout)
		if !drained {
			logging.Warn("Pool did not drain within %v, abandoning queued jobs", a.cfg.ShutdownTimeout)
		}
		a.pool.Shutdown(drained)
		startup.LogShutdownStepComplete("Worker pool stopped")
	}

	if a.collector != nil {
		a.collector.Stop()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}

	media.ShutdownVips()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}
}

// withSignals returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the handler and cancels the context.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
