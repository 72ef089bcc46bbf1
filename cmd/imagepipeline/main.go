package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const (
	exitError    = 1
	exitFailures = 2
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errItemsFailed) {
			os.Exit(exitFailures)
		}
		os.Exit(exitError)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	var err error
	switch args[0] {
	case "thumbnails":
		err = runThumbnails(args[1:], stdout)
	case "optimize":
		err = runOptimize(args[1:], stdout)
	case "analyze":
		err = runAnalyze(args[1:], stdout)
	case "enhance":
		err = runEnhance(args[1:], stdout)
	case "cache-stats":
		err = runCacheStats(args[1:], stdout)
	case "clear-cache":
		err = runClearCache(args[1:], stdout)
	case "history":
		err = runHistory(args[1:], stdout)
	case "metrics":
		err = runMetrics(args[1:], stdout)
	case "presets":
		err = runPresets(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "imagepipeline: concurrent thumbnail, optimization and quality pipeline")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch Commands:")
	fmt.Fprintln(w, "  thumbnails   render thumbnails at preset or custom sizes (-out DIR [-presets a,b] [-spec WxH])")
	fmt.Fprintln(w, "  optimize     re-encode images smaller (-out DIR [-quality N] [-max-dimension N])")
	fmt.Fprintln(w, "  analyze      measure brightness, contrast, sharpness and noise")
	fmt.Fprintln(w, "  enhance      apply manual and recommended enhancements (-out DIR | -in-place)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Other Commands:")
	fmt.Fprintln(w, "  cache-stats  summarise the thumbnail cache of an output directory")
	fmt.Fprintln(w, "  clear-cache  delete cached thumbnails of an output directory")
	fmt.Fprintln(w, "  history      list recorded batch runs, show one run, or prune")
	fmt.Fprintln(w, "  metrics      print pool, job and resource metrics as JSON")
	fmt.Fprintln(w, "  presets      list built-in thumbnail presets")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - Inputs may be files or directories; use -recursive to descend")
	fmt.Fprintln(w, "  - Use -json for machine-readable output and -config for a YAML file")
	fmt.Fprintln(w, "  - Exit status is 2 when a batch completed with failed items")
}
