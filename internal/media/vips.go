package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sync"

	"media-pipeline/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogging maps the application log level onto a libvips level and a
// handler that forwards libvips messages to our logger.
func vipsLogging(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	forward := func(threshold vips.LogLevel) func(string, vips.LogLevel, string) {
		return func(domain string, level vips.LogLevel, msg string) {
			if level > threshold {
				return
			}
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			case vips.LogLevelMessage, vips.LogLevelInfo, vips.LogLevelDebug:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}

	// libvips levels count down in severity: Error < Critical < Warning < ... < Debug.
	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward(vips.LogLevelDebug)
	case logging.LevelInfo:
		return vips.LogLevelWarning, forward(vips.LogLevelWarning)
	case logging.LevelWarn:
		return vips.LogLevelError, forward(vips.LogLevelCritical)
	case logging.LevelError:
		return vips.LogLevelCritical, forward(vips.LogLevelCritical)
	default:
		return vips.LogLevelWarning, forward(vips.LogLevelCritical)
	}
}

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL
	level, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// Pool workers provide the parallelism; keep libvips itself single threaded.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsVersion returns the libvips version string, or "none" when libvips
// has not been started.
func VipsVersion() string {
	if !IsVipsAvailable() {
		return "none"
	}
	return vips.Version
}

// LoadImageWithVips loads an image shrunk to fit targetWidth x targetHeight
// using libvips decode-time shrinking, with EXIF orientation applied.
func LoadImageWithVips(path string, targetWidth, targetHeight int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	logging.Debug("Loading %s with vips (target: %dx%d)", filepath.Base(path), targetWidth, targetHeight)

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips auto-rotate failed: %w", err)
	}

	logging.Debug("Vips loaded %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())

	if err := ref.Thumbnail(targetWidth, targetHeight, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	// PNG keeps the alpha channel through the hand-off to the Go side.
	imgBytes, _, err := ref.ExportPng(&vips.PngExportParams{
		StripMetadata: true,
		Compression:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}

	logging.Debug("Vips processing complete for %s: final size %dx%d",
		filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy())

	return img, nil
}

// encodeJPEGWithVips encodes img as a progressive, Huffman-optimized JPEG.
func encodeJPEGWithVips(img image.Image, quality int) ([]byte, error) {
	var raw bytes.Buffer
	if err := imaging.Encode(&raw, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return nil, fmt.Errorf("stage image for vips: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load staged image: %w", err)
	}
	defer ref.Close()

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		Interlace:      true,
		OptimizeCoding: true,
		StripMetadata:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips JPEG export failed: %w", err)
	}
	return out, nil
}
