package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-pipeline/internal/batch"
	"media-pipeline/internal/cache"
	"media-pipeline/internal/filesystem"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/media"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pool"
	"media-pipeline/internal/quality"
)

// ErrInputNotFound is returned when a requested input does not exist.
// No work is submitted in that case.
var ErrInputNotFound = errors.New("input not found")

var errOutputDirRequired = errors.New("output directory is required")

// DefaultPresets are used when a thumbnail request names no specs.
var DefaultPresets = []string{"small", "medium", "large"}

// Config holds the service settings that are not per request.
type Config struct {
	DefaultPresets []string
	KeyStrategy    cache.KeyStrategy
	Limits         media.Limits
}

// RunOption adjusts a single batch call.
type RunOption func(*batch.Job)

// WithProgress streams progress of the batch to observer.
func WithProgress(observer batch.Observer) RunOption {
	return func(j *batch.Job) { j.Observer = observer }
}

// Service is the entry point for batch image operations. It owns no pool;
// the caller starts and shuts down the pool it passes in.
type Service struct {
	cfg       Config
	pool      *pool.ThreadPool
	orch      *batch.Orchestrator
	startedAt time.Time

	mu        sync.Mutex
	caches    map[string]*cache.ThumbnailCache
	jobs      JobMetrics
	batchTime time.Duration
}

// NewService creates a service running work on p.
func NewService(p *pool.ThreadPool, cfg Config) *Service {
	if len(cfg.DefaultPresets) == 0 {
		cfg.DefaultPresets = DefaultPresets
	}
	if cfg.KeyStrategy == "" {
		cfg.KeyStrategy = cache.KeyMtimeSize
	}
	if cfg.Limits == (media.Limits{}) {
		cfg.Limits = media.DefaultLimits()
	}
	return &Service{
		cfg:       cfg,
		pool:      p,
		orch:      batch.NewOrchestrator(p),
		startedAt: time.Now(),
		caches:    make(map[string]*cache.ThumbnailCache),
	}
}

// GenerateThumbnails renders every source at every requested spec. With
// neither specs nor presets the configured default presets are used.
func (s *Service) GenerateThumbnails(ctx context.Context, sources []string, outputDir string, specs []model.ThumbnailSpec, presets []string, opts ...RunOption) (*model.BatchSummary, error) {
	if err := checkInputs(sources); err != nil {
		return nil, err
	}
	if len(specs) == 0 && len(presets) == 0 {
		presets = s.cfg.DefaultPresets
	}
	resolved, err := media.ResolveSpecs(specs, presets)
	if err != nil {
		return nil, err
	}

	c, err := s.cacheFor(outputDir)
	if err != nil {
		return nil, err
	}
	gen := media.NewThumbnailGenerator(outputDir, c, s.cfg.Limits)
	claims := make(outputClaims)

	return s.run(ctx, batch.Job{
		Kind:   model.KindThumbnails,
		Inputs: sources,
		Expand: func(source string) []batch.Unit {
			units := make([]batch.Unit, len(resolved))
			for i, spec := range resolved {
				if err := claims.take(gen.OutputPath(source, spec), source, spec.Signature()); err != nil {
					units[i] = conflictUnit(model.KindThumbnails, source, spec.Label(), err)
					continue
				}
				units[i] = func(ctx context.Context) model.JobResult {
					return gen.Generate(ctx, source, spec)
				}
			}
			return units
		},
	}, opts)
}

// OptimizeImages re-encodes every source at quality, shrinking images
// larger than maxDimension. maxDimension <= 0 keeps the original size.
func (s *Service) OptimizeImages(ctx context.Context, sources []string, outputDir string, quality, maxDimension int, opts ...RunOption) (*model.BatchSummary, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality must be within 1-100, got %d", quality)
	}
	if outputDir == "" {
		return nil, errOutputDirRequired
	}
	if err := checkInputs(sources); err != nil {
		return nil, err
	}

	o := media.NewOptimizer(outputDir, s.cfg.Limits)
	return s.run(ctx, batch.Job{
		Kind:   model.KindOptimize,
		Inputs: sources,
		Expand: singleOutput(model.KindOptimize, o.OutputPath, func(ctx context.Context, source string) model.JobResult {
			return o.Optimize(ctx, source, quality, maxDimension)
		}),
	}, opts)
}

// AnalyzeImages measures the quality of every source without writing
// anything.
func (s *Service) AnalyzeImages(ctx context.Context, sources []string, analyzeOpts quality.AnalyzeOptions, opts ...RunOption) (*model.BatchSummary, error) {
	if err := checkInputs(sources); err != nil {
		return nil, err
	}
	if analyzeOpts.Limits == (media.Limits{}) {
		analyzeOpts.Limits = s.cfg.Limits
	}

	a := quality.NewAnalyzer(analyzeOpts)
	return s.run(ctx, batch.Job{
		Kind:   model.KindAnalyze,
		Inputs: sources,
		Expand: single(a.Analyze),
	}, opts)
}

// EnhanceImages applies settings to every source.
func (s *Service) EnhanceImages(ctx context.Context, sources []string, outputDir string, settings model.EnhancementSettings, opts ...RunOption) (*model.BatchSummary, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enhancement settings: %w", err)
	}
	if settings.PreserveOriginal && outputDir == "" {
		return nil, errOutputDirRequired
	}
	if err := checkInputs(sources); err != nil {
		return nil, err
	}

	e := quality.NewEnhancer(quality.NewAnalyzer(quality.AnalyzeOptions{OmitHistograms: true, Limits: s.cfg.Limits}), s.cfg.Limits)
	return s.run(ctx, batch.Job{
		Kind:   model.KindEnhance,
		Inputs: sources,
		Expand: singleOutput(model.KindEnhance, func(source string) string {
			return quality.OutputPath(source, outputDir, settings)
		}, func(ctx context.Context, source string) model.JobResult {
			return e.Enhance(ctx, source, outputDir, settings)
		}),
	}, opts)
}

// CacheStats reports the thumbnail cache of outputDir. A directory that
// does not exist has an empty cache and is not created.
func (s *Service) CacheStats(outputDir string) (cache.Stats, error) {
	c, err := s.existingCache(outputDir)
	if err != nil || c == nil {
		return cache.Stats{}, err
	}
	return c.Stats(), nil
}

// ClearCache deletes the cached thumbnails of outputDir and empties its
// index. It returns the number of files deleted.
func (s *Service) ClearCache(outputDir string) (int, error) {
	c, err := s.existingCache(outputDir)
	if err != nil || c == nil {
		return 0, err
	}
	return c.Clear()
}

// existingCache is cacheFor for read paths. It returns nil when
// outputDir does not exist.
func (s *Service) existingCache(outputDir string) (*cache.ThumbnailCache, error) {
	if outputDir == "" {
		return nil, errOutputDirRequired
	}
	if !filesystem.Exists(outputDir) {
		logging.Debug("Output directory %s does not exist, cache is empty", outputDir)
		return nil, nil
	}
	return s.cacheFor(outputDir)
}

func (s *Service) run(ctx context.Context, job batch.Job, opts []RunOption) (*model.BatchSummary, error) {
	for _, opt := range opts {
		opt(&job)
	}
	summary, err := s.orch.Run(ctx, job)
	if summary != nil {
		s.recordBatch(summary)
	}
	return summary, err
}

// cacheFor returns the cache of outputDir, loading its index on first use.
func (s *Service) cacheFor(outputDir string) (*cache.ThumbnailCache, error) {
	if outputDir == "" {
		return nil, errOutputDirRequired
	}
	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory %s: %w", outputDir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.caches[dir]; ok {
		return c, nil
	}
	c, err := cache.New(dir, s.cfg.KeyStrategy)
	if err != nil {
		return nil, err
	}
	s.caches[dir] = c
	return c, nil
}

// checkInputs rejects the request if any source is missing.
func checkInputs(sources []string) error {
	var missing []string
	for _, src := range sources {
		if !filesystem.Exists(src) {
			missing = append(missing, src)
		}
	}
	if len(missing) > 0 {
		logging.Warn("Rejecting request, %d of %d inputs not found", len(missing), len(sources))
		return fmt.Errorf("%w: %s", ErrInputNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// single expands each input into exactly one unit.
func single(fn func(ctx context.Context, source string) model.JobResult) func(string) []batch.Unit {
	return func(source string) []batch.Unit {
		return []batch.Unit{func(ctx context.Context) model.JobResult {
			return fn(ctx, source)
		}}
	}
}

// singleOutput is single for operations writing one file per input. An
// input whose output path is taken by an earlier input fails with
// ErrOutputConflict.
func singleOutput(kind model.JobKind, outputPath func(string) string, fn func(ctx context.Context, source string) model.JobResult) func(string) []batch.Unit {
	claims := make(outputClaims)
	return func(source string) []batch.Unit {
		if err := claims.take(outputPath(source), source, ""); err != nil {
			return []batch.Unit{conflictUnit(kind, source, "", err)}
		}
		return single(fn)(source)
	}
}
