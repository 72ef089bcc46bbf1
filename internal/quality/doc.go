// Package quality measures image quality and corrects common problems.
//
// The Analyzer computes brightness, contrast, saturation, sharpness
// (Laplacian variance) and noise, flags issues against fixed thresholds and
// recommends enhancements. The Enhancer applies recommended corrections in a
// fixed order followed by any manual adjustment factors.
package quality
