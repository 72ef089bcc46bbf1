package media

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// gradientImage returns an opaque gradient so resizes can be verified.
func gradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8((x * 255) / max(width, 1)),
				G: uint8((y * 255) / max(height, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// createTestImage writes a gradient test image to path.
func createTestImage(t *testing.T, path string, width, height int, format string) {
	t.Helper()

	img := gradientImage(width, height)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(f, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}

	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func TestGetImageInfo(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name       string
		width      int
		height     int
		format     string
		wantFormat string
	}{
		{name: "Small JPEG", width: 100, height: 100, format: "jpeg", wantFormat: "jpeg"},
		{name: "Wide PNG", width: 400, height: 100, format: "png", wantFormat: "png"},
		{name: "Tall JPEG", width: 90, height: 300, format: "jpeg", wantFormat: "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name+"."+tt.format)
			createTestImage(t, path, tt.width, tt.height, tt.format)

			info, err := GetImageInfo(path)
			if err != nil {
				t.Fatalf("GetImageInfo() error = %v", err)
			}
			if info.Width != tt.width || info.Height != tt.height {
				t.Errorf("GetImageInfo() = %dx%d, want %dx%d", info.Width, info.Height, tt.width, tt.height)
			}
			if info.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", info.Format, tt.wantFormat)
			}
		})
	}
}

func TestGetImageInfoErrors(t *testing.T) {
	tmpDir := t.TempDir()

	notImage := filepath.Join(tmpDir, "notes.jpg")
	if err := os.WriteFile(notImage, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := GetImageInfo(notImage); !errors.Is(err, ErrDecode) {
		t.Errorf("GetImageInfo(non-image) error = %v, want ErrDecode", err)
	}
	if _, err := GetImageInfo(filepath.Join(tmpDir, "missing.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("GetImageInfo(missing) error = %v, want ErrNotExist", err)
	}
}

func TestConstrain(t *testing.T) {
	limits := Limits{MaxDimension: 1000, MaxPixels: 500_000}

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
		wantConstrain bool
	}{
		{name: "within limits", width: 800, height: 600, wantW: 800, wantH: 600},
		{name: "wide over dimension", width: 2000, height: 500, wantW: 1000, wantH: 250, wantConstrain: true},
		{name: "tall over dimension", width: 400, height: 2000, wantW: 200, wantH: 1000, wantConstrain: true},
		{name: "over pixel budget", width: 1000, height: 1000, wantW: 707, wantH: 707, wantConstrain: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := constrain(tt.width, tt.height, limits)
			if ok != tt.wantConstrain {
				t.Errorf("constrain() ok = %v, want %v", ok, tt.wantConstrain)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("constrain() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if w*h > limits.MaxPixels {
				t.Errorf("constrained size %dx%d exceeds pixel budget", w, h)
			}
		})
	}
}

func TestLoadImage(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "big.png")
	createTestImage(t, path, 600, 300, "png")

	img, info, err := LoadImage(path, Limits{MaxDimension: 300, MaxPixels: 1_000_000})
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if info.Width != 600 || info.Height != 300 {
		t.Errorf("info = %dx%d, want original 600x300", info.Width, info.Height)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 150 {
		t.Errorf("loaded = %dx%d, want 300x150", b.Dx(), b.Dy())
	}

	img, _, err = LoadImage(path, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 300 {
		t.Errorf("unconstrained load = %dx%d, want 600x300", b.Dx(), b.Dy())
	}
}

func TestLoadImageCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadImage(path, DefaultLimits()); !errors.Is(err, ErrDecode) {
		t.Errorf("LoadImage(corrupt) error = %v, want ErrDecode", err)
	}
}

func TestHasAlphaAndFlatten(t *testing.T) {
	opaque := gradientImage(4, 4)
	if HasAlpha(opaque) {
		t.Error("HasAlpha(opaque) = true")
	}

	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(translucent.Pix); i += 4 {
		translucent.Pix[i+3] = 0 // fully transparent black
	}
	if !HasAlpha(translucent) {
		t.Fatal("HasAlpha(translucent) = false")
	}

	flat := Flatten(translucent, color.White)
	if HasAlpha(flat) {
		t.Error("Flatten() left transparency")
	}
	if got := flat.NRGBAAt(0, 0); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("flattened transparent pixel = %v, want white", got)
	}
}
