package media

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"media-pipeline/internal/filesystem"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/model"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// PrepareForFormat returns img ready to be written as format: images with
// transparency are flattened onto white for formats without an alpha channel.
func PrepareForFormat(img *image.NRGBA, format model.Format) *image.NRGBA {
	if !format.SupportsAlpha() && HasAlpha(img) {
		return Flatten(img, color.White)
	}
	return img
}

// Encode writes img to w as format. quality only affects lossy formats.
func Encode(w io.Writer, img image.Image, format model.Format, quality int) error {
	quality = min(max(quality, 1), 100)

	var err error
	switch format {
	case model.FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case model.FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case model.FormatGIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case model.FormatBMP:
		err = imaging.Encode(w, img, imaging.BMP)
	case model.FormatTIFF:
		err = imaging.Encode(w, img, imaging.TIFF)
	case model.FormatWebP:
		err = encodeWebP(w, img, quality)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}
	return nil
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return fmt.Errorf("error creating webp encoder options: %w", err)
	}
	return webp.Encode(w, img, options)
}

// Save encodes img as format and writes it atomically to path. JPEG output
// is progressive when libvips is available. It returns the bytes written.
func Save(path string, img *image.NRGBA, format model.Format, quality int) (int64, error) {
	img = PrepareForFormat(img, format)

	if format == model.FormatJPEG && IsVipsAvailable() {
		data, err := encodeJPEGWithVips(img, quality)
		if err == nil {
			if err := filesystem.WriteFileAtomic(path, data); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrEncode, err)
			}
			return int64(len(data)), nil
		}
		logging.Debug("vips JPEG export failed for %s, using Go encoder: %v", path, err)
	}

	n, err := filesystem.WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, img, format, quality)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrEncode, path, err)
	}
	return n, nil
}
