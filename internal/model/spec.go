package model

import (
	"errors"
	"fmt"
	"strings"
)

// ThumbnailSpec describes one requested output rendition.
type ThumbnailSpec struct {
	Name             string `json:"name,omitempty" yaml:"name"`
	Width            int    `json:"width" yaml:"width"`
	Height           int    `json:"height" yaml:"height"`
	Quality          int    `json:"quality" yaml:"quality"`
	Format           Format `json:"format" yaml:"format"`
	Suffix           string `json:"suffix" yaml:"suffix"`
	MaintainAspect   bool   `json:"maintain_aspect" yaml:"maintain_aspect"`
	EnhanceSharpness bool   `json:"enhance_sharpness" yaml:"enhance_sharpness"`
	EnhanceContrast  bool   `json:"enhance_contrast" yaml:"enhance_contrast"`
}

// Validate checks the spec's invariants.
func (s ThumbnailSpec) Validate() error {
	var errs []error
	if s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Errorf("dimensions must be positive, got %dx%d", s.Width, s.Height))
	}
	if s.Quality < 1 || s.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be within 1-100, got %d", s.Quality))
	}
	if !s.Format.Valid() {
		errs = append(errs, fmt.Errorf("unsupported format %q", s.Format))
	}
	if strings.ContainsAny(s.Suffix, `/\`) {
		errs = append(errs, fmt.Errorf("suffix %q must not contain path separators", s.Suffix))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid thumbnail spec %s: %w", s.Label(), err)
	}
	return nil
}

// Signature is the stable identity of the rendition settings. Two specs
// with equal signatures produce identical output; the name is not part of it.
func (s ThumbnailSpec) Signature() string {
	return fmt.Sprintf("%dx%d_q%d_%s_%s_a%t_s%t_c%t",
		s.Width, s.Height, s.Quality, s.Format, s.Suffix,
		s.MaintainAspect, s.EnhanceSharpness, s.EnhanceContrast)
}

// Label is a human readable identifier used in logs and results.
func (s ThumbnailSpec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%dx%d%s", s.Width, s.Height, s.Suffix)
}

// OutputName returns "{stem}{suffix}.{ext}" for a source file stem.
func (s ThumbnailSpec) OutputName(stem string) string {
	return stem + s.Suffix + "." + s.Format.Extension()
}

var presets = map[string]ThumbnailSpec{
	"small": {
		Name: "small", Width: 150, Height: 150, Quality: 85, Format: FormatJPEG,
		Suffix: "_small", MaintainAspect: true, EnhanceSharpness: true,
	},
	"medium": {
		Name: "medium", Width: 300, Height: 300, Quality: 85, Format: FormatJPEG,
		Suffix: "_medium", MaintainAspect: true, EnhanceSharpness: true,
	},
	"large": {
		Name: "large", Width: 600, Height: 600, Quality: 90, Format: FormatJPEG,
		Suffix: "_large", MaintainAspect: true,
	},
	"preview": {
		Name: "preview", Width: 1200, Height: 800, Quality: 90, Format: FormatJPEG,
		Suffix: "_preview", MaintainAspect: true,
	},
	"square": {
		Name: "square", Width: 400, Height: 400, Quality: 85, Format: FormatJPEG,
		Suffix: "_square", MaintainAspect: false,
	},
	"banner": {
		Name: "banner", Width: 1200, Height: 300, Quality: 90, Format: FormatJPEG,
		Suffix: "_banner", MaintainAspect: false,
	},
}

// PresetNames lists the built-in presets in size order.
func PresetNames() []string {
	return []string{"small", "medium", "large", "preview", "square", "banner"}
}

// LookupPreset returns a built-in preset. Names are case-sensitive.
func LookupPreset(name string) (ThumbnailSpec, bool) {
	s, ok := presets[name]
	return s, ok
}
