package mediatypes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"media-pipeline/internal/logging"
)

// FileType represents how the pipeline treats a file.
type FileType string

const (
	// FileTypeImage is an image the pipeline can decode.
	FileTypeImage FileType = "image"
	// FileTypeUnsupportedImage is a recognised image format the decoders
	// cannot read (HEIC, SVG, ...). Such inputs fail per item.
	FileTypeUnsupportedImage FileType = "unsupported-image"
	// FileTypeOther represents anything else.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps image file extensions to whether they can be decoded.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".svg":  false,
	".ico":  false,
	".heic": false,
	".heif": false,
	".avif": false,
}

// MimeTypes maps image file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
}

// GetFileType returns the FileType for a file name or extension.
// Matching is case-insensitive.
func GetFileType(name string) FileType {
	decodable, ok := ImageExtensions[normalizeExt(name)]
	switch {
	case !ok:
		return FileTypeOther
	case decodable:
		return FileTypeImage
	default:
		return FileTypeUnsupportedImage
	}
}

// GetMimeType returns the MIME type for a file name or extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[normalizeExt(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsImageFile reports whether name has a decodable image extension.
func IsImageFile(name string) bool {
	return GetFileType(name) == FileTypeImage
}

func normalizeExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = "." + name
	}
	return strings.ToLower(ext)
}

// ExpandOptions controls ExpandInputs.
type ExpandOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// IncludeUnsupported also collects recognised images that cannot be
	// decoded, so they are reported as per-item failures.
	IncludeUnsupported bool
}

// ExpandInputs turns a list of files and directories into a list of image
// files. Files are passed through untouched, even when they do not exist,
// so the caller can report them. Directories are replaced by the images
// inside them in lexical order. Hidden files and directories are skipped.
// Duplicates keep their first position.
func ExpandInputs(ctx context.Context, inputs []string, opts ExpandOptions) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			add(input)
			continue
		}

		found, err := walkImages(ctx, input, opts)
		if err != nil {
			return out, fmt.Errorf("expand %s: %w", input, err)
		}
		logging.Debug("Expanded %s to %d images", input, len(found))
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

func walkImages(ctx context.Context, root string, opts ExpandOptions) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if path == root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		switch GetFileType(d.Name()) {
		case FileTypeImage:
			found = append(found, path)
		case FileTypeUnsupportedImage:
			if opts.IncludeUnsupported {
				found = append(found, path)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return nil, err
	}

	slices.Sort(found)
	return found, nil
}
