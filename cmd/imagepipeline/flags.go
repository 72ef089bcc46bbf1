package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"media-pipeline/internal/mediatypes"
	"media-pipeline/internal/model"
)

const (
	defaultSpecQuality = 85
	defaultOptQuality  = 85
)

// commonOptions are the flags every pipeline command accepts.
type commonOptions struct {
	configPath string
	json       bool
	quiet      bool
}

func addCommonFlags(fs *flag.FlagSet) *commonOptions {
	o := &commonOptions{}
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file (environment overrides it)")
	fs.BoolVar(&o.json, "json", false, "print JSON output")
	fs.BoolVar(&o.quiet, "quiet", false, "do not show progress")
	return o
}

// inputOptions select how positional arguments become image paths.
type inputOptions struct {
	recursive          bool
	includeUnsupported bool
}

func addInputFlags(fs *flag.FlagSet) *inputOptions {
	o := &inputOptions{}
	fs.BoolVar(&o.recursive, "recursive", false, "descend into subdirectories of directory inputs")
	fs.BoolVar(&o.includeUnsupported, "include-unsupported", false, "report undecodable image types (HEIC, SVG, ...) as failures")
	return o
}

func (o *inputOptions) expand(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one input file or directory is required")
	}
	sources, err := mediatypes.ExpandInputs(ctx, args, mediatypes.ExpandOptions{
		Recursive:          o.recursive,
		IncludeUnsupported: o.includeUnsupported,
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", strings.Join(args, ", "))
	}
	return sources, nil
}

// specList collects repeated -spec flags.
type specList []model.ThumbnailSpec

func (l *specList) String() string {
	if l == nil {
		return ""
	}
	labels := make([]string, len(*l))
	for i, s := range *l {
		labels[i] = s.Label()
	}
	return strings.Join(labels, ",")
}

func (l *specList) Set(v string) error {
	spec, err := parseSpec(v)
	if err != nil {
		return err
	}
	*l = append(*l, spec)
	return nil
}

// parseSpec reads "[name=]WxH[:format[:quality]]". A leading '!' on the
// size stretches to the exact size instead of fitting inside it.
func parseSpec(v string) (model.ThumbnailSpec, error) {
	spec := model.ThumbnailSpec{
		Quality:        defaultSpecQuality,
		Format:         model.FormatJPEG,
		MaintainAspect: true,
	}

	rest := strings.TrimSpace(v)
	if name, tail, ok := strings.Cut(rest, "="); ok {
		spec.Name = strings.TrimSpace(name)
		rest = tail
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 3 {
		return spec, fmt.Errorf("spec %q: expected [name=]WxH[:format[:quality]]", v)
	}

	size := parts[0]
	if strings.HasPrefix(size, "!") {
		spec.MaintainAspect = false
		size = size[1:]
	}
	w, h, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return spec, fmt.Errorf("spec %q: size must be WxH", v)
	}
	var err error
	if spec.Width, err = strconv.Atoi(w); err != nil {
		return spec, fmt.Errorf("spec %q: width: %w", v, err)
	}
	if spec.Height, err = strconv.Atoi(h); err != nil {
		return spec, fmt.Errorf("spec %q: height: %w", v, err)
	}

	if len(parts) > 1 && parts[1] != "" {
		if spec.Format, err = model.ParseFormat(parts[1]); err != nil {
			return spec, fmt.Errorf("spec %q: %w", v, err)
		}
	}
	if len(parts) > 2 {
		if spec.Quality, err = strconv.Atoi(parts[2]); err != nil {
			return spec, fmt.Errorf("spec %q: quality: %w", v, err)
		}
	}

	if spec.Name != "" {
		spec.Suffix = "_" + spec.Name
	} else {
		spec.Suffix = fmt.Sprintf("_%dx%d", spec.Width, spec.Height)
	}
	return spec, spec.Validate()
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseKind(v string) (model.JobKind, error) {
	kind := model.JobKind(strings.ToLower(strings.TrimSpace(v)))
	switch kind {
	case "", model.KindThumbnails, model.KindOptimize, model.KindAnalyze, model.KindEnhance:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown kind %q (thumbnails|optimize|analyze|enhance)", v)
	}
}
