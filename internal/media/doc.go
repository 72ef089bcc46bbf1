// Package media decodes, transforms and encodes images.
//
// The ThumbnailGenerator renders thumbnail specs for a source image,
// consulting a Cache first:
//   - Decode: imaging with EXIF orientation, size constrained, or libvips
//     shrink-on-load when InitVips has been called
//   - Resize: Lanczos to TargetDimensions
//   - Encode: JPEG (progressive through libvips), PNG, GIF, BMP, TIFF, WebP
//
// The Optimizer re-encodes images in their own format at a chosen quality.
// adjust.go holds the pixel operations shared with the quality package.
package media
