package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"media-pipeline/internal/cache"
	"media-pipeline/internal/database"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/model"
)

const maxListedFailures = 20

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, s *model.BatchSummary) {
	fmt.Fprintf(w, "%s %s: %s in %v\n", s.Kind, s.TaskID, s.Status, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  inputs %d  units %d  ok %d  cached %d  failed %d  skipped %d\n",
		s.TotalInputs, s.TotalWorkUnits, s.Successful, s.Cached, s.Failed, s.Skipped)
	fmt.Fprintf(w, "  success %.1f%%  %.1f items/s  avg %v\n",
		s.SuccessRate*100, s.ItemsPerSecond, s.AverageItemDuration.Round(time.Millisecond))
	if s.Kind == model.KindOptimize || s.Kind == model.KindEnhance {
		fmt.Fprintf(w, "  size %s -> %s (%s)\n",
			memory.FormatBytes(s.OriginalBytes), memory.FormatBytes(s.OutputBytes), signedBytes(s.BytesSaved()))
	}

	for _, p := range s.SkippedPaths {
		fmt.Fprintf(w, "  skipped: %s\n", p)
	}

	if s.Kind == model.KindAnalyze {
		printAnalysis(w, s.Results)
	}

	listed := 0
	for _, r := range s.Results {
		if r.Success {
			continue
		}
		if listed == maxListedFailures {
			fmt.Fprintf(w, "  ... %d more failures\n", s.Failed-listed)
			break
		}
		label := r.SourcePath
		if r.Spec != "" {
			label += " [" + r.Spec + "]"
		}
		fmt.Fprintf(w, "  failed: %s: %s\n", label, r.Error)
		listed++
	}
}

func printAnalysis(w io.Writer, results []model.JobResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  IMAGE\tSIZE\tBRIGHT\tCONTRAST\tSHARP\tISSUES\tRECOMMENDED")
	for _, r := range results {
		if !r.Success || r.Analysis == nil {
			continue
		}
		a := r.Analysis
		fmt.Fprintf(tw, "  %s\t%dx%d\t%.0f\t%.0f\t%.0f\t%s\t%s\n",
			r.SourcePath, a.Width, a.Height, a.Brightness, a.Contrast, a.Sharpness,
			joinOrDash(a.Issues), joinOrDash(a.Recommendations))
	}
	_ = tw.Flush()
}

func printCacheStats(w io.Writer, dir string, s cache.Stats) {
	fmt.Fprintf(w, "cache %s\n", dir)
	fmt.Fprintf(w, "  entries %d  valid %d  invalid %d  size %s\n",
		s.TotalEntries, s.ValidEntries, s.InvalidEntries, memory.FormatBytes(s.TotalSizeBytes))
}

func printRuns(w io.Writer, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no batch runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tKIND\tSTATUS\tSTARTED\tDURATION\tUNITS\tOK\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%d\t%d\t%d\t%d\n",
			r.TaskID, r.Kind, r.Status, r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond), r.TotalWorkUnits, r.Successful, r.Failed, r.Skipped)
	}
	_ = tw.Flush()
}

func printRun(w io.Writer, r *database.RunRecord, results []model.JobResult) {
	fmt.Fprintf(w, "%s %s: %s\n", r.Kind, r.TaskID, r.Status)
	fmt.Fprintf(w, "  started %s  finished %s  duration %v\n",
		r.StartedAt.Local().Format(time.DateTime), r.FinishedAt.Local().Format(time.DateTime),
		r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  inputs %d  units %d  ok %d  cached %d  failed %d  skipped %d\n",
		r.TotalInputs, r.TotalWorkUnits, r.Successful, r.Cached, r.Failed, r.Skipped)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, res := range results {
		state := "ok"
		switch {
		case !res.Success:
			state = "failed"
		case res.Cached:
			state = "cached"
		}
		detail := strings.Join(res.OutputPaths, ", ")
		if res.Error != "" {
			detail = res.Error
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", state, res.SourcePath, res.Spec, detail)
	}
	_ = tw.Flush()
}

func printPresets(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tFORMAT\tQUALITY\tASPECT\tSUFFIX")
	for _, name := range model.PresetNames() {
		p, _ := model.LookupPreset(name)
		aspect := "fit"
		if !p.MaintainAspect {
			aspect = "stretch"
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%s\t%d\t%s\t%s\n", p.Name, p.Width, p.Height, p.Format, p.Quality, aspect, p.Suffix)
	}
	_ = tw.Flush()
}

func signedBytes(n int64) string {
	if n < 0 {
		return "+" + memory.FormatBytes(-n)
	}
	return "-" + memory.FormatBytes(n)
}

func joinOrDash[T ~string](items []T) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = string(it)
	}
	return strings.Join(parts, ",")
}
