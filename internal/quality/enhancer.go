package quality

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/media"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"
)

// autoOrder is the order recommended corrections are applied in. Other
// recommendations are covered by the manual factors.
var autoOrder = []model.EnhancementType{
	model.EnhanceAutoLevels,
	model.EnhanceHistogramEqualization,
	model.EnhanceGammaCorrection,
	model.EnhanceNoiseReduction,
	model.EnhanceWhiteBalance,
}

const (
	darkGamma    = 1.2
	defaultGamma = 0.9
)

// Enhancer applies automatic and manual corrections to images.
type Enhancer struct {
	analyzer *Analyzer
	limits   media.Limits
}

// NewEnhancer creates an enhancer that uses analyzer for auto enhancement.
func NewEnhancer(analyzer *Analyzer, limits media.Limits) *Enhancer {
	if analyzer == nil {
		analyzer = NewAnalyzer(AnalyzeOptions{OmitHistograms: true})
	}
	return &Enhancer{analyzer: analyzer, limits: limits}
}

// OutputPath returns where the enhanced copy of source is written: the
// source itself when originals are not preserved, otherwise
// "{stem}{suffix}{ext}" in outputDir.
func OutputPath(source, outputDir string, settings model.EnhancementSettings) string {
	if !settings.PreserveOriginal {
		return source
	}
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(filepath.Base(source), ext)
	return filepath.Join(outputDir, stem+settings.OutputSuffix+ext)
}

// Enhance corrects source and writes the result. Failures are reported in
// the result rather than returned.
func (e *Enhancer) Enhance(ctx context.Context, source, outputDir string, settings model.EnhancementSettings) model.JobResult {
	start := time.Now()
	result := model.JobResult{Kind: model.KindEnhance, SourcePath: source}
	fail := func(err error) model.JobResult {
		result.Duration = time.Since(start)
		logging.Warn("Enhancing %s failed: %v", source, err)
		return result.WithError(err)
	}

	if err := settings.Validate(); err != nil {
		return fail(fmt.Errorf("invalid enhancement settings: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	format, err := model.FormatFromPath(source)
	if err != nil {
		return fail(err)
	}
	result.OriginalSize = media.FileSize(source)

	img, _, err := media.LoadImage(source, e.limits)
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	out, applied, analysis := e.Apply(img, settings)

	output := OutputPath(source, outputDir, settings)
	n, err := media.Save(output, out, format, settings.Quality)
	if err != nil {
		return fail(err)
	}

	b := out.Bounds()
	result.Success = true
	result.OutputPaths = []string{output}
	result.OutputSize = n
	result.SizeDelta = n - result.OriginalSize
	result.Width, result.Height = b.Dx(), b.Dy()
	result.Enhancements = applied
	if analysis != nil {
		result.Issues = analysis.Issues
		result.Analysis = analysis
	}
	result.Duration = time.Since(start)

	logging.Debug("Enhanced %s -> %s (%v)", source, output, applied)
	return result
}

// Apply runs the corrections on img and returns the corrected image with
// the enhancements applied, in order. The analysis is nil unless
// AutoEnhance is set.
func (e *Enhancer) Apply(img *image.NRGBA, settings model.EnhancementSettings) (*image.NRGBA, []model.EnhancementType, *model.QualityAnalysis) {
	var applied []model.EnhancementType
	var analysis *model.QualityAnalysis

	record := func(t model.EnhancementType) {
		applied = append(applied, t)
		metrics.EnhancementsAppliedTotal.WithLabelValues(string(t)).Inc()
	}

	gamma := defaultGamma
	if settings.Gamma > 0 && settings.Gamma != 1.0 {
		gamma = settings.Gamma
	}

	if settings.AutoEnhance {
		analysis = e.analyzer.AnalyzeImage(img)
		if analysis.HasIssue(model.IssueDarkImage) && settings.Gamma == 1.0 {
			gamma = darkGamma
		}

		for _, t := range autoOrder {
			if !slices.Contains(analysis.Recommendations, t) {
				continue
			}
			switch t {
			case model.EnhanceAutoLevels:
				img = media.AutoLevels(img)
			case model.EnhanceHistogramEqualization:
				img = media.Equalize(img)
			case model.EnhanceGammaCorrection:
				img = media.Gamma(img, gamma)
			case model.EnhanceNoiseReduction:
				img = media.MedianDenoise(img)
			case model.EnhanceWhiteBalance:
				img = media.WhiteBalance(img)
			}
			record(t)
		}
	}

	manual := []struct {
		t      model.EnhancementType
		factor float64
		apply  func(image.Image, float64) *image.NRGBA
	}{
		{model.EnhanceBrightness, settings.Brightness, media.Brightness},
		{model.EnhanceContrast, settings.Contrast, media.Contrast},
		{model.EnhanceSaturation, settings.Saturation, media.Saturation},
		{model.EnhanceSharpness, settings.Sharpness, media.Sharpness},
	}
	for _, m := range manual {
		if m.factor > 0 && m.factor != 1.0 {
			img = m.apply(img, m.factor)
			record(m.t)
		}
	}

	if settings.Gamma > 0 && settings.Gamma != 1.0 && !slices.Contains(applied, model.EnhanceGammaCorrection) {
		img = media.Gamma(img, settings.Gamma)
		record(model.EnhanceGammaCorrection)
	}

	return img, applied, analysis
}
