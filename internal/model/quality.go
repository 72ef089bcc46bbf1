package model

import (
	"errors"
	"fmt"
	"slices"
)

// QualityIssue is a problem detected by image analysis.
type QualityIssue string

const (
	IssueDarkImage      QualityIssue = "dark_image"
	IssueOverexposed    QualityIssue = "overexposed"
	IssueLowContrast    QualityIssue = "low_contrast"
	IssueBlurry         QualityIssue = "blurry"
	IssueOversaturated  QualityIssue = "oversaturated"
	IssueUndersaturated QualityIssue = "undersaturated"
	IssueColorCast      QualityIssue = "color_cast"
	IssueNoisy          QualityIssue = "noisy"
)

// AllQualityIssues lists every issue in detection order.
func AllQualityIssues() []QualityIssue {
	return []QualityIssue{
		IssueDarkImage, IssueOverexposed, IssueLowContrast, IssueBlurry,
		IssueOversaturated, IssueUndersaturated, IssueColorCast, IssueNoisy,
	}
}

func (i QualityIssue) String() string { return string(i) }

// UnmarshalText rejects names outside AllQualityIssues.
func (i *QualityIssue) UnmarshalText(b []byte) error {
	v := QualityIssue(b)
	if !slices.Contains(AllQualityIssues(), v) {
		return fmt.Errorf("unknown quality issue %q", v)
	}
	*i = v
	return nil
}

// EnhancementType is a correction the enhancer can apply.
type EnhancementType string

const (
	EnhanceAutoLevels            EnhancementType = "auto_levels"
	EnhanceBrightness            EnhancementType = "brightness"
	EnhanceContrast              EnhancementType = "contrast"
	EnhanceSaturation            EnhancementType = "saturation"
	EnhanceSharpness             EnhancementType = "sharpness"
	EnhanceGammaCorrection       EnhancementType = "gamma_correction"
	EnhanceHistogramEqualization EnhancementType = "histogram_equalization"
	EnhanceNoiseReduction        EnhancementType = "noise_reduction"
	EnhanceWhiteBalance          EnhancementType = "white_balance"
	EnhanceColorBalance          EnhancementType = "color_balance"
)

// AllEnhancementTypes lists every enhancement type.
func AllEnhancementTypes() []EnhancementType {
	return []EnhancementType{
		EnhanceAutoLevels, EnhanceBrightness, EnhanceContrast, EnhanceSaturation,
		EnhanceSharpness, EnhanceGammaCorrection, EnhanceHistogramEqualization,
		EnhanceNoiseReduction, EnhanceWhiteBalance, EnhanceColorBalance,
	}
}

func (e EnhancementType) String() string { return string(e) }

// UnmarshalText rejects names outside AllEnhancementTypes.
func (e *EnhancementType) UnmarshalText(b []byte) error {
	v := EnhancementType(b)
	if !slices.Contains(AllEnhancementTypes(), v) {
		return fmt.Errorf("unknown enhancement type %q", v)
	}
	*e = v
	return nil
}

// Histograms holds 256-bin pixel counts per channel.
type Histograms struct {
	Red       [256]int `json:"red"`
	Green     [256]int `json:"green"`
	Blue      [256]int `json:"blue"`
	Luminance [256]int `json:"luminance"`
}

// QualityAnalysis is the measured quality of one image.
type QualityAnalysis struct {
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Brightness      float64           `json:"brightness"`
	Contrast        float64           `json:"contrast"`
	Saturation      float64           `json:"saturation"`
	Sharpness       float64           `json:"sharpness"`
	Noise           float64           `json:"noise"`
	ChannelMeans    [3]float64        `json:"channel_means"`
	Histograms      *Histograms       `json:"histograms,omitempty"`
	Issues          []QualityIssue    `json:"issues"`
	Recommendations []EnhancementType `json:"recommendations"`
	Confidence      float64           `json:"confidence"`
}

// HasIssue reports whether the analysis found issue.
func (a *QualityAnalysis) HasIssue(issue QualityIssue) bool {
	for _, i := range a.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// EnhancementSettings controls the enhancer. Factors of 1.0 leave an
// image unchanged.
type EnhancementSettings struct {
	Brightness       float64 `json:"brightness" yaml:"brightness"`
	Contrast         float64 `json:"contrast" yaml:"contrast"`
	Saturation       float64 `json:"saturation" yaml:"saturation"`
	Sharpness        float64 `json:"sharpness" yaml:"sharpness"`
	Gamma            float64 `json:"gamma" yaml:"gamma"`
	AutoEnhance      bool    `json:"auto_enhance" yaml:"auto_enhance"`
	PreserveOriginal bool    `json:"preserve_original" yaml:"preserve_original"`
	OutputSuffix     string  `json:"output_suffix" yaml:"output_suffix"`
	Quality          int     `json:"quality" yaml:"quality"`
}

// DefaultEnhancementSettings returns neutral factors with auto
// enhancement on and the original preserved.
func DefaultEnhancementSettings() EnhancementSettings {
	return EnhancementSettings{
		Brightness:       1.0,
		Contrast:         1.0,
		Saturation:       1.0,
		Sharpness:        1.0,
		Gamma:            1.0,
		AutoEnhance:      true,
		PreserveOriginal: true,
		OutputSuffix:     "_enhanced",
		Quality:          95,
	}
}

// Validate checks that factors are positive and quality is in range.
func (s EnhancementSettings) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"brightness": s.Brightness,
		"contrast":   s.Contrast,
		"saturation": s.Saturation,
		"sharpness":  s.Sharpness,
		"gamma":      s.Gamma,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s factor must be positive, got %v", name, v))
		}
	}
	if s.Quality < 1 || s.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be within 1-100, got %d", s.Quality))
	}
	if s.PreserveOriginal && s.OutputSuffix == "" {
		errs = append(errs, errors.New("output suffix is required when preserving originals"))
	}
	return errors.Join(errs...)
}
