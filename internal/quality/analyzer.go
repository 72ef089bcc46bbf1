package quality

import (
	"context"
	"image"
	"math"
	"time"

	"media-pipeline/internal/logging"
	"media-pipeline/internal/media"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"
)

// Thresholds are the issue detection limits. Comparisons are strict, so a
// value equal to a threshold is not an issue.
type Thresholds struct {
	DarkBelow           float64
	OverexposedAbove    float64
	LowContrastBelow    float64
	UndersaturatedBelow float64
	OversaturatedAbove  float64
	BlurryBelow         float64
	NoisyAbove          float64
	ColorCastDelta      float64
}

// DefaultThresholds returns the standard detection limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DarkBelow:           85,
		OverexposedAbove:    200,
		LowContrastBelow:    30,
		UndersaturatedBelow: 50,
		OversaturatedAbove:  200,
		BlurryBelow:         50,
		NoisyAbove:          15,
		ColorCastDelta:      20,
	}
}

// Confidence normalisation references.
const (
	referencePixels    = 1920 * 1080
	referenceSharpness = 1000.0
	referenceContrast  = 64.0
)

// AnalyzeOptions tunes an Analyzer.
type AnalyzeOptions struct {
	// OmitHistograms drops the per-channel histograms from results.
	OmitHistograms bool
	Thresholds     Thresholds
	Limits         media.Limits
}

// Analyzer measures image quality and recommends enhancements.
type Analyzer struct {
	opts AnalyzeOptions
}

// NewAnalyzer creates an analyzer. Zero thresholds select the defaults.
func NewAnalyzer(opts AnalyzeOptions) *Analyzer {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return &Analyzer{opts: opts}
}

// Analyze measures source and reports the analysis as a job result.
func (a *Analyzer) Analyze(ctx context.Context, source string) model.JobResult {
	start := time.Now()
	result := model.JobResult{Kind: model.KindAnalyze, SourcePath: source}

	analysis, err := a.AnalyzeFile(ctx, source)
	result.Duration = time.Since(start)
	if err != nil {
		logging.Warn("Analyzing %s failed: %v", source, err)
		return result.WithError(err)
	}

	result.Success = true
	result.Width, result.Height = analysis.Width, analysis.Height
	result.OriginalSize = media.FileSize(source)
	result.Issues = analysis.Issues
	result.Enhancements = analysis.Recommendations
	result.Analysis = analysis
	return result
}

// AnalyzeFile decodes source and measures it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, source string) (*model.QualityAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := media.LoadImage(source, a.opts.Limits)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.AnalyzeImage(img), nil
}

// AnalyzeImage measures an already decoded image.
func (a *Analyzer) AnalyzeImage(img *image.NRGBA) *model.QualityAnalysis {
	start := time.Now()
	defer func() {
		metrics.QualityAnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	hist, luma, satMean := measurePixels(img)
	brightness, contrast := histogramStats(&hist.Luminance, w*h)

	analysis := &model.QualityAnalysis{
		Width:        w,
		Height:       h,
		Brightness:   brightness,
		Contrast:     contrast,
		Saturation:   satMean,
		Sharpness:    laplacianVariance(luma, w, h),
		Noise:        localNoise(luma, w, h),
		ChannelMeans: media.ChannelMeans(img),
	}
	if !a.opts.OmitHistograms {
		analysis.Histograms = hist
	}

	analysis.Issues = DetectIssues(analysis, a.opts.Thresholds)
	analysis.Recommendations = Recommend(analysis.Issues)
	analysis.Confidence = Confidence(w, h, analysis.Sharpness, analysis.Contrast)

	for _, issue := range analysis.Issues {
		metrics.QualityIssuesTotal.WithLabelValues(string(issue)).Inc()
	}
	return analysis
}

// measurePixels builds the histograms, a luminance plane and the mean HSV
// saturation in one pass.
func measurePixels(img *image.NRGBA) (*model.Histograms, []float64, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	hist := &model.Histograms{}
	luma := make([]float64, w*h)

	var satSum float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, bl := row[x*4], row[x*4+1], row[x*4+2]
			hist.Red[r]++
			hist.Green[g]++
			hist.Blue[bl]++

			l := media.Luma(r, g, bl)
			hist.Luminance[l]++
			luma[y*w+x] = float64(l)

			hi := max(r, g, bl)
			if hi > 0 {
				lo := min(r, g, bl)
				satSum += float64(hi-lo) * 255 / float64(hi)
			}
		}
	}

	var satMean float64
	if n := w * h; n > 0 {
		satMean = satSum / float64(n)
	}
	return hist, luma, satMean
}

// histogramStats returns the mean and population standard deviation of a
// 256-bin histogram.
func histogramStats(hist *[256]int, n int) (mean, stddev float64) {
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	mean = sum / float64(n)

	var sq float64
	for i, c := range hist {
		d := float64(i) - mean
		sq += d * d * float64(c)
	}
	return mean, math.Sqrt(sq / float64(n))
}

// laplacianVariance is the variance of the 4-neighbour Laplacian over the
// interior of the luminance plane.
func laplacianVariance(luma []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	var sum, sq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			v := luma[i-1] + luma[i+1] + luma[i-w] + luma[i+w] - 4*luma[i]
			sum += v
			sq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	return sq/float64(n) - mean*mean
}

// localNoise is the mean standard deviation of 3x3 luminance windows.
func localNoise(luma []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	var total float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var sum, sq float64
			for dy := -1; dy <= 1; dy++ {
				base := (y+dy)*w + x
				for dx := -1; dx <= 1; dx++ {
					v := luma[base+dx]
					sum += v
					sq += v * v
				}
			}
			mean := sum / 9
			total += math.Sqrt(max(sq/9-mean*mean, 0))
			n++
		}
	}
	return total / float64(n)
}

// DetectIssues applies th to an analysis, returning issues in the order of
// model.AllQualityIssues.
func DetectIssues(a *model.QualityAnalysis, th Thresholds) []model.QualityIssue {
	var issues []model.QualityIssue
	for _, issue := range model.AllQualityIssues() {
		var found bool
		switch issue {
		case model.IssueDarkImage:
			found = a.Brightness < th.DarkBelow
		case model.IssueOverexposed:
			found = a.Brightness > th.OverexposedAbove
		case model.IssueLowContrast:
			found = a.Contrast < th.LowContrastBelow
		case model.IssueBlurry:
			found = a.Sharpness < th.BlurryBelow
		case model.IssueOversaturated:
			found = a.Saturation > th.OversaturatedAbove
		case model.IssueUndersaturated:
			found = a.Saturation < th.UndersaturatedBelow
		case model.IssueColorCast:
			m := a.ChannelMeans
			found = math.Abs(m[0]-m[1]) > th.ColorCastDelta ||
				math.Abs(m[0]-m[2]) > th.ColorCastDelta ||
				math.Abs(m[1]-m[2]) > th.ColorCastDelta
		case model.IssueNoisy:
			found = a.Noise > th.NoisyAbove
		}
		if found {
			issues = append(issues, issue)
		}
	}
	return issues
}

// remedies returns the enhancements that address issue.
func remedies(issue model.QualityIssue) []model.EnhancementType {
	switch issue {
	case model.IssueDarkImage:
		return []model.EnhancementType{model.EnhanceBrightness, model.EnhanceGammaCorrection}
	case model.IssueOverexposed:
		return []model.EnhancementType{model.EnhanceBrightness}
	case model.IssueLowContrast:
		return []model.EnhancementType{model.EnhanceContrast, model.EnhanceHistogramEqualization}
	case model.IssueBlurry:
		return []model.EnhancementType{model.EnhanceSharpness}
	case model.IssueOversaturated, model.IssueUndersaturated:
		return []model.EnhancementType{model.EnhanceSaturation}
	case model.IssueColorCast:
		return []model.EnhancementType{model.EnhanceWhiteBalance, model.EnhanceColorBalance}
	case model.IssueNoisy:
		return []model.EnhancementType{model.EnhanceNoiseReduction}
	default:
		return nil
	}
}

// Recommend maps issues to enhancements. AutoLevels always comes first;
// duplicates keep their first position.
func Recommend(issues []model.QualityIssue) []model.EnhancementType {
	recs := []model.EnhancementType{model.EnhanceAutoLevels}
	seen := map[model.EnhancementType]bool{model.EnhanceAutoLevels: true}
	for _, issue := range issues {
		for _, e := range remedies(issue) {
			if !seen[e] {
				seen[e] = true
				recs = append(recs, e)
			}
		}
	}
	return recs
}

// Confidence blends resolution (40%), sharpness (30%) and contrast (30%)
// into a score in [0, 1].
func Confidence(width, height int, sharpness, contrast float64) float64 {
	resolution := math.Min(1, float64(width*height)/referencePixels)
	sharp := math.Min(1, math.Max(sharpness, 0)/referenceSharpness)
	cont := math.Min(1, math.Max(contrast, 0)/referenceContrast)
	score := 0.4*resolution + 0.3*sharp + 0.3*cont
	return math.Min(1, math.Max(0, score))
}
