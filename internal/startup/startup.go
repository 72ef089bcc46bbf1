package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"media-pipeline/internal/cache"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/media"
	"media-pipeline/internal/memory"
	"media-pipeline/internal/model"
	"media-pipeline/internal/pipeline"

	"github.com/gorilla/mux"
	"github.com/ilyakaznacheev/cleanenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration. Values come from an
// optional YAML file, overridden by the environment.
type Config struct {
	Workers   int `yaml:"workers" env:"PIPELINE_WORKERS" env-default:"0"`
	QueueSize int `yaml:"queue_size" env:"PIPELINE_QUEUE_SIZE" env-default:"0"`

	CacheKeyStrategy string   `yaml:"cache_key_strategy" env:"CACHE_KEY_STRATEGY" env-default:"mtime_size"`
	DefaultPresets   []string `yaml:"default_presets" env:"DEFAULT_PRESETS" env-separator:"," env-default:"small,medium,large"`

	UseVips           bool `yaml:"use_vips" env:"USE_VIPS" env-default:"true"`
	MaxImageDimension int  `yaml:"max_image_dimension" env:"MAX_IMAGE_DIMENSION" env-default:"8192"`
	MaxImagePixels    int  `yaml:"max_image_pixels" env:"MAX_IMAGE_PIXELS" env-default:"40000000"`

	// DatabasePath is the batch history file. Empty disables history.
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" env-default:"media-pipeline.db"`

	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"false"`
	MetricsAddr    string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":9090"`

	MemoryHighWaterMark     float64 `yaml:"memory_high_water_mark" env:"MEMORY_HIGH_WATER_MARK" env-default:"0.7"`
	MemoryCriticalWaterMark float64 `yaml:"memory_critical_water_mark" env:"MEMORY_CRITICAL_WATER_MARK" env-default:"0.85"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	// Derived
	KeyStrategy    cache.KeyStrategy `yaml:"-" env:"-"`
	HistoryEnabled bool              `yaml:"-" env:"-"`
}

// PipelineConfig returns the service settings carried by c.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		DefaultPresets: c.DefaultPresets,
		KeyStrategy:    c.KeyStrategy,
		Limits:         media.Limits{MaxDimension: c.MaxImageDimension, MaxPixels: c.MaxImagePixels},
	}
}

// MemoryConfig returns the monitor watermarks carried by c.
func (c *Config) MemoryConfig() memory.Config {
	cfg := memory.DefaultConfig()
	cfg.HighWaterMark = c.MemoryHighWaterMark
	cfg.CriticalWaterMark = c.MemoryCriticalWaterMark
	return cfg
}

// LoadConfig reads configuration from path, when given, and the
// environment, validates it and logs the result. It does not print the
// banner; see LogBanner.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logConfig(&cfg, path)

	if err := cfg.setupHistory(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	strategy, err := cache.ParseKeyStrategy(c.CacheKeyStrategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("CACHE_KEY_STRATEGY: %w", err))
	}
	c.KeyStrategy = strategy

	presets := make([]string, 0, len(c.DefaultPresets))
	for _, name := range c.DefaultPresets {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := model.LookupPreset(name); !ok {
			errs = append(errs, fmt.Errorf("DEFAULT_PRESETS: unknown preset %q (known: %s)",
				name, strings.Join(model.PresetNames(), ", ")))
			continue
		}
		presets = append(presets, name)
	}
	c.DefaultPresets = presets

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("PIPELINE_WORKERS must not be negative, got %d", c.Workers))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("PIPELINE_QUEUE_SIZE must not be negative, got %d", c.QueueSize))
	}
	if c.MaxImageDimension <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_DIMENSION must be positive, got %d", c.MaxImageDimension))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels))
	}
	if c.MemoryHighWaterMark <= 0 || c.MemoryCriticalWaterMark > 1 ||
		c.MemoryHighWaterMark >= c.MemoryCriticalWaterMark {
		errs = append(errs, fmt.Errorf("memory watermarks need 0 < high < critical <= 1, got %.2f/%.2f",
			c.MemoryHighWaterMark, c.MemoryCriticalWaterMark))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func logConfig(c *Config, path string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if path != "" {
		logging.Info("  Config file:                 %s", path)
	}
	logging.Info("  PIPELINE_WORKERS:            %s", autoString(c.Workers))
	logging.Info("  PIPELINE_QUEUE_SIZE:         %s", autoString(c.QueueSize))
	logging.Info("  CACHE_KEY_STRATEGY:          %s", c.KeyStrategy)
	logging.Info("  DEFAULT_PRESETS:             %s", strings.Join(c.DefaultPresets, ","))
	logging.Info("  USE_VIPS:                    %v", c.UseVips)
	logging.Info("  MAX_IMAGE_DIMENSION:         %d", c.MaxImageDimension)
	logging.Info("  MAX_IMAGE_PIXELS:            %d", c.MaxImagePixels)
	logging.Info("  DATABASE_PATH:               %s", c.DatabasePath)
	logging.Info("  METRICS_ENABLED:             %v", c.MetricsEnabled)
	logging.Info("  METRICS_ADDR:                %s", c.MetricsAddr)
	logging.Info("  MEMORY_HIGH_WATER_MARK:      %.2f", c.MemoryHighWaterMark)
	logging.Info("  MEMORY_CRITICAL_WATER_MARK:  %.2f", c.MemoryCriticalWaterMark)
	logging.Info("  SHUTDOWN_TIMEOUT:            %v", c.ShutdownTimeout)
	logging.Info("  LOG_LEVEL:                   %s", logging.GetLevel())
}

func autoString(n int) string {
	if n == 0 {
		return "auto"
	}
	return fmt.Sprint(n)
}

// setupHistory resolves the history database path and checks that its
// directory is writable. A directory that cannot be used disables history
// rather than failing the run.
func (c *Config) setupHistory() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if c.DatabasePath == "" {
		logging.Info("  History:     DISABLED (DATABASE_PATH is empty)")
		return nil
	}

	abs, err := filepath.Abs(c.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	c.DatabasePath = abs
	logging.Info("  Database path (absolute): %s", abs)

	dir := filepath.Dir(abs)
	if err := ensureDirectory(dir, "database"); err != nil {
		logging.Warn("  Database directory issue: %v", err)
		logging.Warn("  History will be disabled")
		return nil
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(dir); err != nil {
		logging.Warn("  Database directory is not writable: %v", err)
		logging.Warn("  History will be disabled")
		return nil
	}
	logging.Info("  [OK] Database directory is writable")

	c.HistoryEnabled = true
	logging.Info("  History:     %s", enabledString(c.HistoryEnabled))
	logging.Info("  Metrics:     %s", enabledString(c.MetricsEnabled))
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogBanner prints the banner with build and system information.
func LogBanner() {
	printBanner()
	logSystemInfo()
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogImagingInit logs which decode backend is in use.
func LogImagingInit(vipsRequested, vipsAvailable bool, version string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGING INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	switch {
	case !vipsRequested:
		logging.Info("  libvips disabled (USE_VIPS=false), using pure Go decoders")
	case vipsAvailable:
		logging.Info("  [OK] libvips %s available", version)
	default:
		logging.Warn("  libvips not available, using pure Go decoders")
		logging.Warn("  Large images will decode more slowly")
	}
}

// LogPoolInit logs the worker pool size.
func LogPoolInit(workers, queue, cpus int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WORKER POOL")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Workers:     %d", workers)
	logging.Info("  Queue size:  %d", queue)
	logging.Info("  CPUs:        %d", cpus)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the metrics server routes at debug level.
func LogHTTPRoutes(router *mux.Router) {
	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// ServerConfig holds configuration for the metrics server startup log
type ServerConfig struct {
	MetricsAddr     string
	StartupDuration time.Duration
}

// LogServerStarted logs the metrics server endpoints.
func LogServerStarted(config ServerConfig) {
	host := config.MetricsAddr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("METRICS SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Metrics:         http://%s/metrics", host)
	logging.Info("  Health:          http://%s/healthz", host)
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    _                            ____  _            ___
   (_)___ ___  ____ _____ ____  / __ \(_)___  ___  / (_)___  ___
  / / __ '__ \/ __ '/ __ '/ _ \/ /_/ / / __ \/ _ \/ / / __ \/ _ \
 / / / / / / / /_/ / /_/ /  __/ ____/ / /_/ /  __/ / / / / /  __/
/_/_/ /_/ /_/\__,_/\__, /\___/_/   /_/ .___/\___/_/_/_/ /_/\___/
                  /____/            /_/
------------------------------------------------------------`
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if total, err := memory.HostTotal(); err == nil {
		logging.Info("  Host memory:     %s", memory.FormatBytes(int64(total)))
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
