package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"

	"github.com/disintegration/imaging"
)

const (
	// thumbnailSharpness and thumbnailContrast are the boosts applied when a
	// spec asks for enhancement.
	thumbnailSharpness = 1.2
	thumbnailContrast  = 1.1
)

// Cache is the thumbnail cache consulted before generating.
type Cache interface {
	Get(source string, spec model.ThumbnailSpec) (string, bool)
	Put(source, output string, spec model.ThumbnailSpec) error
}

// ThumbnailGenerator renders thumbnail specs for source images into an
// output directory.
type ThumbnailGenerator struct {
	outputDir string
	cache     Cache
	limits    Limits
}

// NewThumbnailGenerator creates a generator writing into outputDir. cache
// may be nil to always regenerate.
func NewThumbnailGenerator(outputDir string, cache Cache, limits Limits) *ThumbnailGenerator {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logging.Warn("ThumbnailGenerator: failed to create output dir: %v", err)
	}
	logging.Debug("ThumbnailGenerator: output dir %s, cache enabled: %v", outputDir, cache != nil)
	return &ThumbnailGenerator{
		outputDir: outputDir,
		cache:     cache,
		limits:    limits.normalized(),
	}
}

// OutputDir returns the directory thumbnails are written to.
func (t *ThumbnailGenerator) OutputDir() string {
	return t.outputDir
}

// OutputPath returns where source rendered with spec is written.
func (t *ThumbnailGenerator) OutputPath(source string, spec model.ThumbnailSpec) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(t.outputDir, spec.OutputName(stem))
}

// Generate renders one spec for source. Failures are reported in the
// result rather than returned.
func (t *ThumbnailGenerator) Generate(ctx context.Context, source string, spec model.ThumbnailSpec) model.JobResult {
	start := time.Now()
	result := model.JobResult{
		Kind:       model.KindThumbnails,
		SourcePath: source,
		Spec:       spec.Label(),
	}
	finish := func(status string, err error) model.JobResult {
		result.Duration = time.Since(start)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(status).Inc()
		metrics.ThumbnailGenerationDuration.WithLabelValues("total").Observe(result.Duration.Seconds())
		if err != nil {
			logging.Warn("Thumbnail %s for %s failed: %v", spec.Label(), source, err)
			return result.WithError(err)
		}
		result.Success = true
		return result
	}

	if err := spec.Validate(); err != nil {
		return finish("error_invalid", err)
	}

	if t.cache != nil {
		if cached, ok := t.cache.Get(source, spec); ok {
			logging.Debug("Thumbnail cache hit: %s (%s)", source, spec.Label())
			result.Cached = true
			result.OutputPaths = []string{cached}
			result.OutputSize = FileSize(cached)
			return finish("cached", nil)
		}
	}

	if err := ctx.Err(); err != nil {
		return finish("cancelled", err)
	}
	if err := sourceExists(source); err != nil {
		return finish("error_not_found", err)
	}
	result.OriginalSize = FileSize(source)

	phase := time.Now()
	img, _, err := LoadImageForTarget(source, spec.Width, spec.Height, t.limits)
	if err != nil {
		return finish("error_decode", err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("decode").Observe(time.Since(phase).Seconds())

	if err := ctx.Err(); err != nil {
		return finish("cancelled", err)
	}

	phase = time.Now()
	thumb := Resize(img, spec)
	metrics.ThumbnailGenerationDuration.WithLabelValues("resize").Observe(time.Since(phase).Seconds())

	if spec.EnhanceSharpness || spec.EnhanceContrast {
		phase = time.Now()
		if spec.EnhanceSharpness {
			thumb = Sharpness(thumb, thumbnailSharpness)
		}
		if spec.EnhanceContrast {
			thumb = Contrast(thumb, thumbnailContrast)
		}
		metrics.ThumbnailGenerationDuration.WithLabelValues("enhance").Observe(time.Since(phase).Seconds())
	}

	phase = time.Now()
	output := t.OutputPath(source, spec)
	n, err := Save(output, thumb, spec.Format, spec.Quality)
	if err != nil {
		return finish("error_encode", err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("encode").Observe(time.Since(phase).Seconds())

	if t.cache != nil {
		if err := t.cache.Put(source, output, spec); err != nil {
			// The thumbnail exists; only the next lookup will miss.
			logging.Warn("Failed to record %s in thumbnail cache: %v", output, err)
		}
	}

	b := thumb.Bounds()
	result.OutputPaths = []string{output}
	result.OutputSize = n
	result.SizeDelta = n - result.OriginalSize
	result.Width, result.Height = b.Dx(), b.Dy()

	logging.Debug("Thumbnail generated: %s (%dx%d, %d bytes)", output, b.Dx(), b.Dy(), n)
	return finish("success", nil)
}

// Resize scales img to spec's target dimensions with Lanczos resampling.
func Resize(img image.Image, spec model.ThumbnailSpec) *image.NRGBA {
	b := img.Bounds()
	w, h := TargetDimensions(b.Dx(), b.Dy(), spec)
	if w == b.Dx() && h == b.Dy() {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// TargetDimensions computes the output size for a width x height source.
// With MaintainAspect the image is fitted inside the spec box: sources
// wider than the box are constrained by width, others by height.
// Without it the spec dimensions are used exactly.
func TargetDimensions(width, height int, spec model.ThumbnailSpec) (int, int) {
	if !spec.MaintainAspect || width <= 0 || height <= 0 {
		return spec.Width, spec.Height
	}

	imageRatio := float64(width) / float64(height)
	specRatio := float64(spec.Width) / float64(spec.Height)

	if imageRatio > specRatio {
		h := int(float64(spec.Width)/imageRatio + 0.5)
		return spec.Width, max(h, 1)
	}
	w := int(float64(spec.Height)*imageRatio + 0.5)
	return max(w, 1), spec.Height
}

// ErrNoSpecs is returned by ResolveSpecs when nothing usable was requested.
var ErrNoSpecs = errors.New("no thumbnail specs to generate")

// ResolveSpecs combines explicit specs with named presets. Unknown preset
// names are skipped with a warning; invalid explicit specs are an error.
// Duplicate specs (same signature) are dropped.
func ResolveSpecs(specs []model.ThumbnailSpec, presetNames []string) ([]model.ThumbnailSpec, error) {
	out := make([]model.ThumbnailSpec, 0, len(specs)+len(presetNames))
	seen := make(map[string]bool)

	add := func(s model.ThumbnailSpec) {
		sig := s.Signature()
		if seen[sig] {
			return
		}
		seen[sig] = true
		out = append(out, s)
	}

	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		add(s)
	}
	for _, name := range presetNames {
		p, ok := model.LookupPreset(name)
		if !ok {
			logging.Warn("Unknown thumbnail preset %q, skipping", name)
			continue
		}
		add(p)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w (presets: %v)", ErrNoSpecs, presetNames)
	}
	return out, nil
}
