package media

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/model"

	"github.com/disintegration/imaging"
)

// Optimizer re-encodes images at a target quality, optionally shrinking
// them to a maximum dimension.
type Optimizer struct {
	outputDir string
	limits    Limits
}

// NewOptimizer creates an optimizer writing into outputDir.
func NewOptimizer(outputDir string, limits Limits) *Optimizer {
	return &Optimizer{outputDir: outputDir, limits: limits.normalized()}
}

// OutputPath returns "{stem}_optimized{ext}" in the output directory.
func (o *Optimizer) OutputPath(source string) string {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(filepath.Base(source), ext)
	return filepath.Join(o.outputDir, stem+"_optimized"+ext)
}

// Optimize writes an optimized copy of source. maxDimension <= 0 keeps the
// original size. The output keeps the source's format.
func (o *Optimizer) Optimize(ctx context.Context, source string, quality, maxDimension int) model.JobResult {
	start := time.Now()
	result := model.JobResult{Kind: model.KindOptimize, SourcePath: source}
	fail := func(err error) model.JobResult {
		result.Duration = time.Since(start)
		logging.Warn("Optimizing %s failed: %v", source, err)
		return result.WithError(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := sourceExists(source); err != nil {
		return fail(err)
	}

	format, err := model.FormatFromPath(source)
	if err != nil {
		return fail(err)
	}
	result.OriginalSize = FileSize(source)

	img, _, err := LoadImage(source, o.limits)
	if err != nil {
		return fail(err)
	}

	if b := img.Bounds(); maxDimension > 0 && (b.Dx() > maxDimension || b.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
		logging.Debug("Optimizer resized %s from %dx%d to %dx%d",
			source, b.Dx(), b.Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	output := o.OutputPath(source)
	n, err := Save(output, img, format, quality)
	if err != nil {
		return fail(err)
	}

	b := img.Bounds()
	result.Success = true
	result.OutputPaths = []string{output}
	result.OutputSize = n
	result.SizeDelta = n - result.OriginalSize
	result.Width, result.Height = b.Dx(), b.Dy()
	result.Duration = time.Since(start)

	logging.Debug("Optimized %s: %d -> %d bytes", source, result.OriginalSize, n)
	return result
}
