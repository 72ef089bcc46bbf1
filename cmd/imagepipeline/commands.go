package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"media-pipeline/internal/database"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pipeline"
	"media-pipeline/internal/progressui"
	"media-pipeline/internal/quality"
	"media-pipeline/internal/startup"
)

// errItemsFailed marks a batch that ran to completion with failed items.
var errItemsFailed = errors.New("batch finished with failures")

type batchFunc func(ctx context.Context, svc *pipeline.Service, sources []string, opts ...pipeline.RunOption) (*model.BatchSummary, error)

func newFlagSet(name string, stdout io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stdout)
	return fs
}

// runBatch loads configuration, starts the pipeline, runs fn with a
// progress display and prints the summary. The summary is printed and
// recorded even when the batch was cancelled.
func runBatch(common *commonOptions, inputs *inputOptions, args []string, title string, stdout io.Writer, fn batchFunc) error {
	cfg, err := startup.LoadConfig(common.configPath)
	if err != nil {
		return err
	}

	ctx, stop := withSignals(context.Background())
	defer stop()

	sources, err := inputs.expand(ctx, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, !common.quiet && !common.json)
	if err != nil {
		return err
	}
	defer a.close()

	var opts []pipeline.RunOption
	var ui *progressui.UI
	if !common.quiet && !common.json {
		ui = progressui.New(fmt.Sprintf("%s: %d inputs", title, len(sources)), stop)
		ui.Start()
		opts = append(opts, pipeline.WithProgress(ui.Observe))
	}

	summary, runErr := fn(ctx, a.service, sources, opts...)
	if ui != nil {
		ui.Wait()
	}

	if summary != nil {
		a.record(summary)
		if common.json {
			if err := printJSON(stdout, summary); err != nil {
				return err
			}
		} else {
			printSummary(stdout, summary)
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d items failed", errItemsFailed, summary.Failed, summary.TotalWorkUnits)
	}
	return nil
}

func runThumbnails(args []string, stdout io.Writer) error {
	fs := newFlagSet("thumbnails", stdout)
	common := addCommonFlags(fs)
	inputs := addInputFlags(fs)
	out := fs.String("out", "", "output directory (required)")
	presets := fs.String("presets", "", "comma-separated preset names (see 'presets')")
	var specs specList
	fs.Var(&specs, "spec", "custom size [name=][!]WxH[:format[:quality]], repeatable; ! stretches to the exact size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return errors.New("-out is required")
	}

	return runBatch(common, inputs, fs.Args(), "thumbnails", stdout,
		func(ctx context.Context, svc *pipeline.Service, sources []string, opts ...pipeline.RunOption) (*model.BatchSummary, error) {
			return svc.GenerateThumbnails(ctx, sources, *out, specs, splitList(*presets), opts...)
		})
}

func runOptimize(args []string, stdout io.Writer) error {
	fs := newFlagSet("optimize", stdout)
	common := addCommonFlags(fs)
	inputs := addInputFlags(fs)
	out := fs.String("out", "", "output directory (required)")
	q := fs.Int("quality", defaultOptQuality, "encoder quality 1-100")
	maxDim := fs.Int("max-dimension", 0, "shrink images whose longer side exceeds this (0 = keep size)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return errors.New("-out is required")
	}

	return runBatch(common, inputs, fs.Args(), "optimize", stdout,
		func(ctx context.Context, svc *pipeline.Service, sources []string, opts ...pipeline.RunOption) (*model.BatchSummary, error) {
			return svc.OptimizeImages(ctx, sources, *out, *q, *maxDim, opts...)
		})
}

func runAnalyze(args []string, stdout io.Writer) error {
	fs := newFlagSet("analyze", stdout)
	common := addCommonFlags(fs)
	inputs := addInputFlags(fs)
	histograms := fs.Bool("histograms", false, "include per-channel histograms in JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return runBatch(common, inputs, fs.Args(), "analyze", stdout,
		func(ctx context.Context, svc *pipeline.Service, sources []string, opts ...pipeline.RunOption) (*model.BatchSummary, error) {
			return svc.AnalyzeImages(ctx, sources, quality.AnalyzeOptions{OmitHistograms: !*histograms}, opts...)
		})
}

func runEnhance(args []string, stdout io.Writer) error {
	defaults := model.DefaultEnhancementSettings()

	fs := newFlagSet("enhance", stdout)
	common := addCommonFlags(fs)
	inputs := addInputFlags(fs)
	out := fs.String("out", "", "output directory (required unless -in-place)")
	settings := defaults
	fs.Float64Var(&settings.Brightness, "brightness", defaults.Brightness, "brightness factor")
	fs.Float64Var(&settings.Contrast, "contrast", defaults.Contrast, "contrast factor")
	fs.Float64Var(&settings.Saturation, "saturation", defaults.Saturation, "saturation factor")
	fs.Float64Var(&settings.Sharpness, "sharpness", defaults.Sharpness, "sharpness factor")
	fs.Float64Var(&settings.Gamma, "gamma", defaults.Gamma, "gamma correction")
	fs.BoolVar(&settings.AutoEnhance, "auto", defaults.AutoEnhance, "apply the analyzer's recommended enhancements")
	fs.StringVar(&settings.OutputSuffix, "suffix", defaults.OutputSuffix, "output file name suffix")
	fs.IntVar(&settings.Quality, "quality", defaults.Quality, "encoder quality 1-100")
	inPlace := fs.Bool("in-place", false, "overwrite the source files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	settings.PreserveOriginal = !*inPlace
	if settings.PreserveOriginal && strings.TrimSpace(*out) == "" {
		return errors.New("-out is required unless -in-place is set")
	}

	return runBatch(common, inputs, fs.Args(), "enhance", stdout,
		func(ctx context.Context, svc *pipeline.Service, sources []string, opts ...pipeline.RunOption) (*model.BatchSummary, error) {
			return svc.EnhanceImages(ctx, sources, *out, settings, opts...)
		})
}

// runCacheCommand runs fn against a service for the output directory
// given as the only positional argument.
func runCacheCommand(name string, args []string, stdout io.Writer, fn func(svc *pipeline.Service, dir string, common *commonOptions) error) error {
	fs := newFlagSet(name, stdout)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s: expected exactly one output directory", name)
	}

	cfg, err := startup.LoadConfig(common.configPath)
	if err != nil {
		return err
	}
	cfg.MetricsEnabled = false
	cfg.HistoryEnabled = false
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(a.service, fs.Arg(0), common)
}

func runCacheStats(args []string, stdout io.Writer) error {
	return runCacheCommand("cache-stats", args, stdout, func(svc *pipeline.Service, dir string, common *commonOptions) error {
		stats, err := svc.CacheStats(dir)
		if err != nil {
			return err
		}
		if common.json {
			return printJSON(stdout, stats)
		}
		printCacheStats(stdout, dir, stats)
		return nil
	})
}

func runClearCache(args []string, stdout io.Writer) error {
	return runCacheCommand("clear-cache", args, stdout, func(svc *pipeline.Service, dir string, common *commonOptions) error {
		deleted, err := svc.ClearCache(dir)
		if err != nil {
			return err
		}
		if common.json {
			return printJSON(stdout, map[string]any{"directory": dir, "deleted": deleted})
		}
		fmt.Fprintf(stdout, "cleared %s: %d files deleted\n", dir, deleted)
		return nil
	})
}

func runHistory(args []string, stdout io.Writer) error {
	fs := newFlagSet("history", stdout)
	common := addCommonFlags(fs)
	kindFlag := fs.String("kind", "", "only list runs of this kind")
	limit := fs.Int("limit", 20, "number of runs to list")
	prune := fs.Int("prune", -1, "delete all but the newest N runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := parseKind(*kindFlag)
	if err != nil {
		return err
	}

	cfg, err := startup.LoadConfig(common.configPath)
	if err != nil {
		return err
	}
	if !cfg.HistoryEnabled {
		return errors.New("batch history is disabled (set DATABASE_PATH)")
	}

	ctx, stop := withSignals(context.Background())
	defer stop()

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case *prune >= 0:
		deleted, err := db.PruneRuns(ctx, *prune)
		if err != nil {
			return err
		}
		if err := db.Vacuum(ctx); err != nil {
			return err
		}
		if common.json {
			return printJSON(stdout, map[string]any{"deleted": deleted, "kept": *prune})
		}
		fmt.Fprintf(stdout, "pruned %d runs\n", deleted)
		return nil

	case fs.NArg() == 1:
		rec, err := db.GetRun(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		results, err := db.RunResults(ctx, rec.TaskID)
		if err != nil {
			return err
		}
		if common.json {
			return printJSON(stdout, map[string]any{"run": rec, "results": results})
		}
		printRun(stdout, rec, results)
		return nil

	case fs.NArg() > 1:
		return errors.New("history: at most one task id")
	}

	runs, err := db.RecentRuns(ctx, kind, *limit)
	if err != nil {
		return err
	}
	if common.json {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return printJSON(stdout, runs)
	}
	printRuns(stdout, runs)
	return nil
}

// runMetrics prints the performance snapshot of a freshly started pipeline.
// It is mostly useful to check host sizing and libvips detection.
func runMetrics(args []string, stdout io.Writer) error {
	fs := newFlagSet("metrics", stdout)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := startup.LoadConfig(common.configPath)
	if err != nil {
		return err
	}
	cfg.MetricsEnabled = false
	cfg.HistoryEnabled = false
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	return printJSON(stdout, a.service.PerformanceMetrics())
}

func runPresets(args []string, stdout io.Writer) error {
	fs := newFlagSet("presets", stdout)
	jsonOut := fs.Bool("json", false, "print JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jsonOut {
		specs := make([]model.ThumbnailSpec, 0, len(model.PresetNames()))
		for _, name := range model.PresetNames() {
			p, _ := model.LookupPreset(name)
			specs = append(specs, p)
		}
		return printJSON(stdout, specs)
	}
	printPresets(stdout)
	return nil
}
