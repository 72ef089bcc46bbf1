package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-pipeline/internal/cache"
	"media-pipeline/internal/database"
	"media-pipeline/internal/handlers"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pipeline"
	"media-pipeline/internal/startup"
)

// testEnv isolates configuration from the host and returns the history
// database path.
func testEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("USE_VIPS", "false")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("PIPELINE_WORKERS", "2")
	t.Setenv("PIPELINE_QUEUE_SIZE", "16")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	return dbPath
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    model.ThumbnailSpec
		wantErr bool
	}{
		{
			in: "320x240",
			want: model.ThumbnailSpec{Width: 320, Height: 240, Quality: 85, Format: model.FormatJPEG,
				Suffix: "_320x240", MaintainAspect: true},
		},
		{
			in: "hero=1600x900:webp:80",
			want: model.ThumbnailSpec{Name: "hero", Width: 1600, Height: 900, Quality: 80, Format: model.FormatWebP,
				Suffix: "_hero", MaintainAspect: true},
		},
		{
			in: "!100X100:png",
			want: model.ThumbnailSpec{Width: 100, Height: 100, Quality: 85, Format: model.FormatPNG,
				Suffix: "_100x100"},
		},
		{in: "100", wantErr: true},
		{in: "ax100", wantErr: true},
		{in: "100x100:raw", wantErr: true},
		{in: "100x100:jpeg:0", wantErr: true},
		{in: "0x100", wantErr: true},
		{in: "100x100:jpeg:80:extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSpec(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSpec(%q) expected error, got %+v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSpec(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpecListCollectsRepeatedFlags(t *testing.T) {
	var l specList
	for _, v := range []string{"a=10x10", "20x30:png"} {
		if err := l.Set(v); err != nil {
			t.Fatalf("Set(%q) error = %v", v, err)
		}
	}
	if len(l) != 2 {
		t.Fatalf("len = %d, want 2", len(l))
	}
	if got := l.String(); got != "a,20x30_20x30" {
		t.Errorf("String() = %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" small, ,large,")
	if len(got) != 2 || got[0] != "small" || got[1] != "large" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"", "thumbnails", "Optimize", "analyze", "enhance"} {
		if _, err := parseKind(in); err != nil {
			t.Errorf("parseKind(%q) error = %v", in, err)
		}
	}
	if _, err := parseKind("transcode"); err == nil {
		t.Error("parseKind(transcode) expected error")
	}
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(nil, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "thumbnails") {
		t.Errorf("usage missing commands:\n%s", out.String())
	}

	out.Reset()
	if err := run([]string{"frobnicate"}, &out); err == nil {
		t.Error("unknown command should fail")
	}
}

func TestRunHelpFlagIsNotAnError(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"thumbnails", "-h"}, &out); err != nil {
		t.Fatalf("run(thumbnails -h) error = %v", err)
	}
	if !strings.Contains(out.String(), "-out") {
		t.Errorf("flag help missing -out:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "stretches to the exact size") || strings.Contains(out.String(), "crop") {
		t.Errorf("-spec help misdescribes '!':\n%s", out.String())
	}
}

func TestRunPresets(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"presets"}, &out); err != nil {
		t.Fatal(err)
	}
	for _, name := range model.PresetNames() {
		if !strings.Contains(out.String(), name) {
			t.Errorf("presets output missing %s", name)
		}
	}
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "square") && !strings.Contains(line, "stretch") {
			t.Errorf("square preset line = %q, want stretch", line)
		}
	}

	out.Reset()
	if err := run([]string{"presets", "-json"}, &out); err != nil {
		t.Fatal(err)
	}
	var specs []model.ThumbnailSpec
	if err := json.Unmarshal(out.Bytes(), &specs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(specs) != len(model.PresetNames()) {
		t.Errorf("got %d presets, want %d", len(specs), len(model.PresetNames()))
	}
}

func TestThumbnailsRequiresOutputDir(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	if err := run([]string{"thumbnails", "a.png"}, &out); err == nil {
		t.Error("thumbnails without -out should fail")
	}
}

func TestThumbnailsMissingInput(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	var out bytes.Buffer
	err := run([]string{"thumbnails", "-quiet", "-out", filepath.Join(dir, "out"), filepath.Join(dir, "nope.png")}, &out)
	if !errors.Is(err, pipeline.ErrInputNotFound) {
		t.Fatalf("error = %v, want ErrInputNotFound", err)
	}
}

func TestThumbnailsHistoryAndCacheCommands(t *testing.T) {
	testEnv(t)
	in := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "thumbs")
	writePNG(t, filepath.Join(in, "a.png"), 400, 200)
	writePNG(t, filepath.Join(in, "b.png"), 200, 400)
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run([]string{"thumbnails", "-json", "-out", outDir, "-presets", "small", "-spec", "tiny=32x32:png", in}, &out)
	if err != nil {
		t.Fatalf("thumbnails error = %v\n%s", err, out.String())
	}
	var summary model.BatchSummary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalInputs != 2 || summary.TotalWorkUnits != 4 || summary.Successful != 4 {
		t.Errorf("summary = inputs %d units %d ok %d, want 2/4/4",
			summary.TotalInputs, summary.TotalWorkUnits, summary.Successful)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a_tiny.png")); err != nil {
		t.Errorf("custom spec output missing: %v", err)
	}

	// Second run is served from the cache.
	out.Reset()
	if err := run([]string{"thumbnails", "-json", "-out", outDir, "-presets", "small", "-spec", "tiny=32x32:png", in}, &out); err != nil {
		t.Fatal(err)
	}
	summary = model.BatchSummary{}
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Cached != 4 {
		t.Errorf("second run cached = %d, want 4", summary.Cached)
	}

	out.Reset()
	if err := run([]string{"history", "-json"}, &out); err != nil {
		t.Fatalf("history error = %v", err)
	}
	var runs []database.RunRecord
	if err := json.Unmarshal(out.Bytes(), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("history has %d runs, want 2", len(runs))
	}

	out.Reset()
	if err := run([]string{"history", runs[0].TaskID}, &out); err != nil {
		t.Fatalf("history <id> error = %v", err)
	}
	if !strings.Contains(out.String(), runs[0].TaskID) {
		t.Errorf("run detail missing task id:\n%s", out.String())
	}

	out.Reset()
	if err := run([]string{"history", "-prune", "1"}, &out); err != nil {
		t.Fatalf("history -prune error = %v", err)
	}
	if !strings.Contains(out.String(), "pruned 1 runs") {
		t.Errorf("prune output = %q", out.String())
	}

	out.Reset()
	if err := run([]string{"cache-stats", "-json", outDir}, &out); err != nil {
		t.Fatalf("cache-stats error = %v", err)
	}
	var stats cache.Stats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 4 || stats.ValidEntries != 4 {
		t.Errorf("stats = %+v, want 4 valid entries", stats)
	}

	out.Reset()
	if err := run([]string{"clear-cache", outDir}, &out); err != nil {
		t.Fatalf("clear-cache error = %v", err)
	}
	if !strings.Contains(out.String(), "4 files deleted") {
		t.Errorf("clear-cache output = %q", out.String())
	}
}

func TestAnalyzeReportsItemFailures(t *testing.T) {
	testEnv(t)
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "good.png"), 64, 64)
	if err := os.WriteFile(filepath.Join(in, "broken.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run([]string{"analyze", "-quiet", in}, &out)
	if !errors.Is(err, errItemsFailed) {
		t.Fatalf("error = %v, want errItemsFailed", err)
	}
	text := out.String()
	if !strings.Contains(text, "failed: "+filepath.Join(in, "broken.png")) {
		t.Errorf("summary does not list the broken file:\n%s", text)
	}
	if !strings.Contains(text, filepath.Join(in, "good.png")) {
		t.Errorf("summary does not list the analysis:\n%s", text)
	}
}

func TestHistoryDisabled(t *testing.T) {
	testEnv(t)
	t.Setenv("DATABASE_PATH", "")
	var out bytes.Buffer
	if err := run([]string{"history"}, &out); err == nil {
		t.Error("history with DATABASE_PATH unset should fail")
	}
}

func TestSetupRouterRoutes(t *testing.T) {
	router := setupRouter(handlers.New(nil, nil, nil))
	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatal(err)
	}
	paths := make(map[string]bool)
	for _, r := range routes {
		paths[r.Path] = true
	}
	for _, want := range []string{"/healthz", "/livez", "/readyz", "/version", "/metrics",
		"/api/performance", "/api/history", "/api/history/{id}"} {
		if !paths[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}
