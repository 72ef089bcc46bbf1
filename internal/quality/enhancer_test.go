package quality

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"media-pipeline/internal/media"
	"media-pipeline/internal/model"
)

func meanLuma(img *image.NRGBA) float64 {
	b := img.Bounds()
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			sum += float64(media.Luma(c.R, c.G, c.B))
		}
	}
	return sum / float64(b.Dx()*b.Dy())
}

// darkGradient is a dim horizontal ramp between 20 and 60.
func darkGradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(20 + 40*x/(width-1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestApplyAutoOnDarkImage(t *testing.T) {
	e := NewEnhancer(nil, media.DefaultLimits())
	src := darkGradient(64, 32)

	out, applied, analysis := e.Apply(src, model.DefaultEnhancementSettings())
	if analysis == nil || !analysis.HasIssue(model.IssueDarkImage) {
		t.Fatalf("analysis = %+v, want dark_image", analysis)
	}

	want := []model.EnhancementType{
		model.EnhanceAutoLevels,
		model.EnhanceHistogramEqualization,
		model.EnhanceGammaCorrection,
	}
	if !slices.Equal(applied, want) {
		t.Errorf("applied = %v, want %v", applied, want)
	}
	if meanLuma(out) <= meanLuma(src) {
		t.Errorf("mean luminance %v not above source %v", meanLuma(out), meanLuma(src))
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds changed to %v", out.Bounds())
	}
}

func TestApplyManualFactors(t *testing.T) {
	e := NewEnhancer(nil, media.DefaultLimits())
	src := uniformImage(16, 16, grey(100))

	settings := model.DefaultEnhancementSettings()
	settings.AutoEnhance = false
	settings.Brightness = 1.5
	settings.Saturation = 0.5
	settings.Gamma = 2.0

	out, applied, analysis := e.Apply(src, settings)
	if analysis != nil {
		t.Error("analysis returned without auto enhancement")
	}
	want := []model.EnhancementType{model.EnhanceBrightness, model.EnhanceSaturation, model.EnhanceGammaCorrection}
	if !slices.Equal(applied, want) {
		t.Errorf("applied = %v, want %v", applied, want)
	}
	if meanLuma(out) <= 150 {
		t.Errorf("mean luminance = %v, want brightened past 150", meanLuma(out))
	}
}

func TestApplyNeutralSettingsIsNoop(t *testing.T) {
	e := NewEnhancer(nil, media.DefaultLimits())
	src := uniformImage(8, 8, grey(120))

	settings := model.DefaultEnhancementSettings()
	settings.AutoEnhance = false

	out, applied, _ := e.Apply(src, settings)
	if len(applied) != 0 {
		t.Errorf("applied = %v, want none", applied)
	}
	if !slices.Equal(out.Pix, src.Pix) {
		t.Error("pixels changed")
	}
}

func TestApplyManualGammaReplacesAutoGamma(t *testing.T) {
	e := NewEnhancer(nil, media.DefaultLimits())

	settings := model.DefaultEnhancementSettings()
	settings.Gamma = 1.5

	_, applied, _ := e.Apply(darkGradient(32, 16), settings)
	n := 0
	for _, a := range applied {
		if a == model.EnhanceGammaCorrection {
			n++
		}
	}
	if n != 1 {
		t.Errorf("gamma applied %d times in %v, want once", n, applied)
	}
}

func TestEnhancerOutputPath(t *testing.T) {
	settings := model.DefaultEnhancementSettings()
	if got := OutputPath("/in/photo.jpg", "/out", settings); got != filepath.Join("/out", "photo_enhanced.jpg") {
		t.Errorf("OutputPath() = %q", got)
	}

	settings.PreserveOriginal = false
	if got := OutputPath("/in/photo.jpg", "/out", settings); got != "/in/photo.jpg" {
		t.Errorf("OutputPath() without preserve = %q, want the source", got)
	}
}

func TestEnhance(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	source := filepath.Join(dir, "dim.png")
	writePNG(t, source, darkGradient(80, 40))

	e := NewEnhancer(NewAnalyzer(AnalyzeOptions{}), media.DefaultLimits())
	res := e.Enhance(context.Background(), source, outDir, model.DefaultEnhancementSettings())
	if !res.Success {
		t.Fatalf("Enhance() failed: %s", res.Error)
	}
	want := filepath.Join(outDir, "dim_enhanced.png")
	if len(res.OutputPaths) != 1 || res.OutputPaths[0] != want {
		t.Fatalf("OutputPaths = %v, want [%s]", res.OutputPaths, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if res.Kind != model.KindEnhance || res.Width != 80 || res.Height != 40 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Enhancements) == 0 || !slices.Contains(res.Issues, model.IssueDarkImage) {
		t.Errorf("Enhancements = %v, Issues = %v", res.Enhancements, res.Issues)
	}
	if res.SizeDelta != res.OutputSize-res.OriginalSize {
		t.Errorf("SizeDelta = %d, want %d", res.SizeDelta, res.OutputSize-res.OriginalSize)
	}
}

func TestEnhanceOverwritesSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "dim.png")
	writePNG(t, source, darkGradient(40, 20))
	before, err := os.ReadFile(source)
	if err != nil {
		t.Fatal(err)
	}

	settings := model.DefaultEnhancementSettings()
	settings.PreserveOriginal = false

	res := NewEnhancer(nil, media.DefaultLimits()).Enhance(context.Background(), source, filepath.Join(dir, "unused"), settings)
	if !res.Success {
		t.Fatalf("Enhance() failed: %s", res.Error)
	}
	if res.OutputPaths[0] != source {
		t.Errorf("output = %s, want the source", res.OutputPaths[0])
	}
	after, err := os.ReadFile(source)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Equal(before, after) {
		t.Error("source was not rewritten")
	}
	if _, err := os.Stat(filepath.Join(dir, "unused")); !os.IsNotExist(err) {
		t.Error("output directory created when overwriting in place")
	}
}

func TestEnhanceFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.png")
	writePNG(t, good, uniformImage(10, 10, grey(90)))
	corrupt := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	unknown := filepath.Join(dir, "raw.heic")
	if err := os.WriteFile(unknown, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	badSettings := model.DefaultEnhancementSettings()
	badSettings.Contrast = -1

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		source   string
		settings model.EnhancementSettings
	}{
		{"invalid settings", context.Background(), good, badSettings},
		{"missing source", context.Background(), filepath.Join(dir, "gone.png"), model.DefaultEnhancementSettings()},
		{"corrupt source", context.Background(), corrupt, model.DefaultEnhancementSettings()},
		{"unsupported extension", context.Background(), unknown, model.DefaultEnhancementSettings()},
		{"cancelled", cancelled, good, model.DefaultEnhancementSettings()},
	}

	e := NewEnhancer(nil, media.DefaultLimits())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Enhance(tt.ctx, tt.source, filepath.Join(dir, "out"), tt.settings)
			if res.Success || res.Error == "" {
				t.Errorf("Enhance() = %+v, want failure", res)
			}
			if len(res.OutputPaths) != 0 {
				t.Errorf("OutputPaths = %v on failure", res.OutputPaths)
			}
		})
	}
}
