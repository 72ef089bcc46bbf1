package quality

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"media-pipeline/internal/model"
)

func uniformImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func grey(v uint8) color.NRGBA {
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

// halves fills the left half of an image with a and the right half with b.
func halves(width, height int, a, b color.NRGBA) *image.NRGBA {
	img := uniformImage(width, height, a)
	draw.Draw(img, image.Rect(width/2, 0, width, height), &image.Uniform{C: b}, image.Point{}, draw.Src)
	return img
}

func checkerboard(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, grey(255))
			} else {
				img.SetNRGBA(x, y, grey(0))
			}
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestBlackImageScenario(t *testing.T) {
	a := NewAnalyzer(AnalyzeOptions{}).AnalyzeImage(uniformImage(100, 100, grey(0)))

	if a.Brightness > 0.5 {
		t.Errorf("Brightness = %v, want ~0", a.Brightness)
	}
	if !a.HasIssue(model.IssueDarkImage) {
		t.Errorf("issues %v missing dark_image", a.Issues)
	}
	for _, want := range []model.EnhancementType{model.EnhanceBrightness, model.EnhanceGammaCorrection} {
		if !slices.Contains(a.Recommendations, want) {
			t.Errorf("recommendations %v missing %s", a.Recommendations, want)
		}
	}
	if a.Recommendations[0] != model.EnhanceAutoLevels {
		t.Errorf("first recommendation = %s, want auto_levels", a.Recommendations[0])
	}
	if a.Histograms == nil || a.Histograms.Luminance[0] != 100*100 {
		t.Error("histograms missing or wrong")
	}
}

func TestBrightnessBoundary(t *testing.T) {
	tests := []struct {
		level    uint8
		wantDark bool
		wantOver bool
	}{
		{level: 84, wantDark: true},
		{level: 85},
		{level: 86},
		{level: 200},
		{level: 201, wantOver: true},
	}

	an := NewAnalyzer(AnalyzeOptions{OmitHistograms: true})
	for _, tt := range tests {
		a := an.AnalyzeImage(uniformImage(20, 20, grey(tt.level)))
		if math.Abs(a.Brightness-float64(tt.level)) > 1e-9 {
			t.Errorf("level %d: Brightness = %v", tt.level, a.Brightness)
		}
		if got := a.HasIssue(model.IssueDarkImage); got != tt.wantDark {
			t.Errorf("level %d: dark = %v, want %v", tt.level, got, tt.wantDark)
		}
		if got := a.HasIssue(model.IssueOverexposed); got != tt.wantOver {
			t.Errorf("level %d: overexposed = %v, want %v", tt.level, got, tt.wantOver)
		}
		if a.Histograms != nil {
			t.Error("OmitHistograms ignored")
		}
	}
}

func TestContrastBoundary(t *testing.T) {
	an := NewAnalyzer(AnalyzeOptions{})

	tests := []struct {
		spread  uint8
		wantLow bool
	}{
		{spread: 29, wantLow: true},
		{spread: 30, wantLow: false},
		{spread: 31, wantLow: false},
	}
	for _, tt := range tests {
		img := halves(20, 20, grey(100-tt.spread), grey(100+tt.spread))
		a := an.AnalyzeImage(img)
		if math.Abs(a.Contrast-float64(tt.spread)) > 1e-9 {
			t.Errorf("spread %d: Contrast = %v", tt.spread, a.Contrast)
		}
		if got := a.HasIssue(model.IssueLowContrast); got != tt.wantLow {
			t.Errorf("spread %d: low contrast = %v, want %v", tt.spread, got, tt.wantLow)
		}
	}
}

func TestSaturationBoundary(t *testing.T) {
	an := NewAnalyzer(AnalyzeOptions{})

	tests := []struct {
		name      string
		c         color.NRGBA
		wantSat   float64
		wantUnder bool
		wantOver  bool
	}{
		{name: "49", c: color.NRGBA{R: 255, G: 206, B: 206, A: 255}, wantSat: 49, wantUnder: true},
		{name: "50", c: color.NRGBA{R: 255, G: 205, B: 205, A: 255}, wantSat: 50},
		{name: "200", c: color.NRGBA{R: 255, G: 55, B: 55, A: 255}, wantSat: 200},
		{name: "201", c: color.NRGBA{R: 255, G: 54, B: 54, A: 255}, wantSat: 201, wantOver: true},
		{name: "black has none", c: grey(0), wantSat: 0, wantUnder: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := an.AnalyzeImage(uniformImage(10, 10, tt.c))
			if math.Abs(a.Saturation-tt.wantSat) > 1e-9 {
				t.Errorf("Saturation = %v, want %v", a.Saturation, tt.wantSat)
			}
			if got := a.HasIssue(model.IssueUndersaturated); got != tt.wantUnder {
				t.Errorf("undersaturated = %v, want %v", got, tt.wantUnder)
			}
			if got := a.HasIssue(model.IssueOversaturated); got != tt.wantOver {
				t.Errorf("oversaturated = %v, want %v", got, tt.wantOver)
			}
		})
	}
}

func TestSharpnessAndNoise(t *testing.T) {
	an := NewAnalyzer(AnalyzeOptions{})

	flat := an.AnalyzeImage(uniformImage(32, 32, grey(128)))
	if flat.Sharpness != 0 || flat.Noise != 0 {
		t.Errorf("flat image sharpness/noise = %v/%v, want 0/0", flat.Sharpness, flat.Noise)
	}
	if !flat.HasIssue(model.IssueBlurry) {
		t.Error("flat image not blurry")
	}

	busy := an.AnalyzeImage(checkerboard(32))
	if math.Abs(busy.Sharpness-1020*1020) > 1e-6 {
		t.Errorf("checkerboard sharpness = %v, want %v", busy.Sharpness, 1020*1020)
	}
	if busy.HasIssue(model.IssueBlurry) {
		t.Error("checkerboard flagged blurry")
	}
	if !busy.HasIssue(model.IssueNoisy) {
		t.Errorf("checkerboard noise %v not flagged", busy.Noise)
	}

	tiny := an.AnalyzeImage(uniformImage(2, 2, grey(50)))
	if tiny.Sharpness != 0 || tiny.Noise != 0 {
		t.Errorf("2x2 image sharpness/noise = %v/%v", tiny.Sharpness, tiny.Noise)
	}
}

func TestDetectIssuesThresholds(t *testing.T) {
	th := DefaultThresholds()
	base := func() *model.QualityAnalysis {
		return &model.QualityAnalysis{
			Brightness: 128, Contrast: 60, Saturation: 100, Sharpness: 500, Noise: 5,
			ChannelMeans: [3]float64{120, 120, 120},
		}
	}

	tests := []struct {
		name   string
		mutate func(a *model.QualityAnalysis)
		issue  model.QualityIssue
		want   bool
	}{
		{name: "healthy", mutate: func(*model.QualityAnalysis) {}, issue: model.IssueBlurry, want: false},
		{name: "sharpness 49.9", mutate: func(a *model.QualityAnalysis) { a.Sharpness = 49.9 }, issue: model.IssueBlurry, want: true},
		{name: "sharpness 50", mutate: func(a *model.QualityAnalysis) { a.Sharpness = 50 }, issue: model.IssueBlurry, want: false},
		{name: "noise 15", mutate: func(a *model.QualityAnalysis) { a.Noise = 15 }, issue: model.IssueNoisy, want: false},
		{name: "noise 15.1", mutate: func(a *model.QualityAnalysis) { a.Noise = 15.1 }, issue: model.IssueNoisy, want: true},
		{name: "contrast 30", mutate: func(a *model.QualityAnalysis) { a.Contrast = 30 }, issue: model.IssueLowContrast, want: false},
		{name: "contrast 29.9", mutate: func(a *model.QualityAnalysis) { a.Contrast = 29.9 }, issue: model.IssueLowContrast, want: true},
		{name: "cast 20", mutate: func(a *model.QualityAnalysis) { a.ChannelMeans = [3]float64{140, 120, 120} }, issue: model.IssueColorCast, want: false},
		{name: "cast 21 red", mutate: func(a *model.QualityAnalysis) { a.ChannelMeans = [3]float64{141, 120, 120} }, issue: model.IssueColorCast, want: true},
		{name: "cast green blue", mutate: func(a *model.QualityAnalysis) { a.ChannelMeans = [3]float64{120, 110, 131} }, issue: model.IssueColorCast, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(a)
			got := slices.Contains(DetectIssues(a, th), tt.issue)
			if got != tt.want {
				t.Errorf("%s detected = %v, want %v", tt.issue, got, tt.want)
			}
		})
	}

	if issues := DetectIssues(base(), th); len(issues) != 0 {
		t.Errorf("healthy analysis has issues %v", issues)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name   string
		issues []model.QualityIssue
		want   []model.EnhancementType
	}{
		{name: "none", want: []model.EnhancementType{model.EnhanceAutoLevels}},
		{
			name:   "dark and overexposed share brightness",
			issues: []model.QualityIssue{model.IssueDarkImage, model.IssueOverexposed},
			want:   []model.EnhancementType{model.EnhanceAutoLevels, model.EnhanceBrightness, model.EnhanceGammaCorrection},
		},
		{
			name:   "under and over saturation dedupe",
			issues: []model.QualityIssue{model.IssueUndersaturated, model.IssueOversaturated},
			want:   []model.EnhancementType{model.EnhanceAutoLevels, model.EnhanceSaturation},
		},
		{
			name:   "first seen order",
			issues: []model.QualityIssue{model.IssueNoisy, model.IssueColorCast, model.IssueLowContrast, model.IssueBlurry},
			want: []model.EnhancementType{
				model.EnhanceAutoLevels, model.EnhanceNoiseReduction, model.EnhanceWhiteBalance,
				model.EnhanceColorBalance, model.EnhanceContrast, model.EnhanceHistogramEqualization,
				model.EnhanceSharpness,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Recommend(tt.issues); !slices.Equal(got, tt.want) {
				t.Errorf("Recommend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemediesCoverEveryIssue(t *testing.T) {
	for _, issue := range model.AllQualityIssues() {
		if len(remedies(issue)) == 0 {
			t.Errorf("no remedy for %s", issue)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		sharp, cont   float64
		want          float64
	}{
		{name: "reference", width: 1920, height: 1080, sharp: 1000, cont: 64, want: 1},
		{name: "beyond reference clamps", width: 8000, height: 6000, sharp: 1e6, cont: 127, want: 1},
		{name: "empty", want: 0},
		{name: "half everything", width: 960, height: 1080, sharp: 500, cont: 32, want: 0.5},
		{name: "negative inputs", width: 0, height: 0, sharp: -5, cont: -1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.width, tt.height, tt.sharp, tt.cont)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Confidence() = %v outside [0,1]", got)
			}
		})
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dark.png")
	writePNG(t, path, uniformImage(64, 48, grey(30)))

	res := NewAnalyzer(AnalyzeOptions{}).Analyze(context.Background(), path)
	if !res.Success {
		t.Fatalf("Analyze() failed: %s", res.Error)
	}
	if res.Kind != model.KindAnalyze || res.Width != 64 || res.Height != 48 {
		t.Errorf("result = %+v", res)
	}
	if res.Analysis == nil || !slices.Contains(res.Issues, model.IssueDarkImage) {
		t.Errorf("Issues = %v, want dark_image", res.Issues)
	}
	if len(res.OutputPaths) != 0 {
		t.Error("analysis produced outputs")
	}

	missing := NewAnalyzer(AnalyzeOptions{}).Analyze(context.Background(), filepath.Join(dir, "nope.png"))
	if missing.Success || missing.Error == "" {
		t.Errorf("Analyze(missing) = %+v, want failure", missing)
	}
}
