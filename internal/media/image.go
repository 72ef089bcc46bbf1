package media

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"media-pipeline/internal/filesystem"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll process
	// Images larger than this will be downscaled first
	MaxImageDimension = 8192

	// MaxImagePixels is the maximum total pixels (width * height) we'll process
	// A 50MP image would be ~50,000,000 pixels, which uses ~200MB in NRGBA
	MaxImagePixels = 40_000_000
)

var (
	// ErrDecode is returned when a source cannot be read as an image.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode is returned when an output cannot be encoded or written.
	ErrEncode = errors.New("image encode failed")
)

// Limits bounds the size of decoded images.
type Limits struct {
	MaxDimension int
	MaxPixels    int
}

// DefaultLimits returns the package default decode limits.
func DefaultLimits() Limits {
	return Limits{MaxDimension: MaxImageDimension, MaxPixels: MaxImagePixels}
}

func (l Limits) normalized() Limits {
	if l.MaxDimension <= 0 {
		l.MaxDimension = MaxImageDimension
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = MaxImagePixels
	}
	return l
}

// ImageInfo holds what can be learned about an image without decoding
// its pixels.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// GetImageInfo returns dimensions and the decoder's format name without
// fully decoding the image.
func GetImageInfo(path string) (*ImageInfo, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	return &ImageInfo{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}

// constrain returns the size an image must be reduced to so that it fits
// within the limits, and whether any reduction is needed.
func constrain(width, height int, l Limits) (int, int, bool) {
	if width <= l.MaxDimension && height <= l.MaxDimension && width*height <= l.MaxPixels {
		return width, height, false
	}

	targetWidth, targetHeight := width, height

	// First, constrain by max dimension
	if width > l.MaxDimension || height > l.MaxDimension {
		if width > height {
			targetWidth = l.MaxDimension
			targetHeight = height * l.MaxDimension / width
		} else {
			targetHeight = l.MaxDimension
			targetWidth = width * l.MaxDimension / height
		}
	}

	// Then, constrain by total pixels if still too large
	if targetPixels := targetWidth * targetHeight; targetPixels > l.MaxPixels {
		scale := math.Sqrt(float64(l.MaxPixels) / float64(targetPixels))
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	return max(targetWidth, 1), max(targetHeight, 1), true
}

// LoadImage decodes path with EXIF orientation applied, downscaling it when
// it exceeds the limits. The result is always *image.NRGBA.
func LoadImage(path string, limits Limits) (*image.NRGBA, *ImageInfo, error) {
	limits = limits.normalized()

	info, err := GetImageInfo(path)
	if err != nil {
		metrics.ThumbnailImageDecodeByFormat.WithLabelValues("unknown").Inc()
		return nil, nil, err
	}
	metrics.ThumbnailImageDecodeByFormat.WithLabelValues(info.Format).Inc()

	logging.Debug("Image %s dimensions: %dx%d (%s)", path, info.Width, info.Height, info.Format)

	img, err := openOriented(path)
	if err != nil {
		return nil, nil, err
	}

	// Dimensions after orientation may be swapped relative to DecodeConfig.
	b := img.Bounds()
	if w, h, ok := constrain(b.Dx(), b.Dy(), limits); ok {
		logging.Info("Constraining large image %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), w, h)
		return imaging.Resize(img, w, h, imaging.Lanczos), info, nil
	}

	return imaging.Clone(img), info, nil
}

// LoadImageForTarget decodes path for output at roughly width x height.
// When libvips is available and the source is much larger than the target,
// it shrinks during decode instead of loading the full image.
func LoadImageForTarget(path string, width, height int, limits Limits) (*image.NRGBA, *ImageInfo, error) {
	if IsVipsAvailable() && width > 0 && height > 0 {
		info, err := GetImageInfo(path)
		if err == nil && (info.Width > 2*width || info.Height > 2*height) {
			// Keep twice the target so the final Lanczos pass has detail to work with.
			img, verr := LoadImageWithVips(path, 2*width, 2*height)
			if verr == nil {
				metrics.ThumbnailImageDecodeByFormat.WithLabelValues(info.Format).Inc()
				return imaging.Clone(img), info, nil
			}
			metrics.ThumbnailVipsFallbacks.Inc()
			logging.Debug("vips load failed for %s, falling back to Go decoder: %v", path, verr)
		}
	}
	return LoadImage(path, limits)
}

func openOriented(path string) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return img, nil
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img *image.NRGBA) bool {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0xff {
				return true
			}
		}
	}
	return false
}

// Flatten composites img over an opaque background.
func Flatten(img *image.NRGBA, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// FileSize returns the size of path in bytes, or 0 when it cannot be read.
func FileSize(path string) int64 {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0
	}
	return info.Size()
}

// sourceExists reports a missing source distinctly from other stat errors.
func sourceExists(path string) error {
	_, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("source not found: %s: %w", path, os.ErrNotExist)
	}
	return err
}
