package model

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Format is an output image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// AllFormats lists every supported output format.
func AllFormats() []Format {
	return []Format{FormatJPEG, FormatPNG, FormatWebP, FormatGIF, FormatBMP, FormatTIFF}
}

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// FormatFromPath derives the format from a file name's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension, without the dot, written for f.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	case FormatGIF:
		return "gif"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return string(f)
	}
}

// IsLossy reports whether the quality setting affects the encoder.
func (f Format) IsLossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// SupportsAlpha reports whether the format can store transparency.
func (f Format) SupportsAlpha() bool {
	switch f {
	case FormatPNG, FormatWebP, FormatGIF, FormatTIFF:
		return true
	case FormatJPEG, FormatBMP:
		return false
	default:
		return false
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return slices.Contains(AllFormats(), f)
}
