package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"media-pipeline/internal/cache"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

// isolate points DATABASE_PATH into a temp dir so tests never touch the
// working directory.
func isolate(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history", "runs.db")
	t.Setenv("DATABASE_PATH", dbPath)
	return dbPath
}

func TestLoadConfigDefaults(t *testing.T) {
	dbPath := isolate(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Workers != 0 || cfg.QueueSize != 0 {
		t.Errorf("workers/queue = %d/%d, want auto", cfg.Workers, cfg.QueueSize)
	}
	if cfg.KeyStrategy != cache.KeyMtimeSize {
		t.Errorf("KeyStrategy = %q", cfg.KeyStrategy)
	}
	if !slices.Equal(cfg.DefaultPresets, []string{"small", "medium", "large"}) {
		t.Errorf("DefaultPresets = %v", cfg.DefaultPresets)
	}
	if !cfg.UseVips || cfg.MetricsEnabled {
		t.Errorf("UseVips=%v MetricsEnabled=%v", cfg.UseVips, cfg.MetricsEnabled)
	}
	if cfg.MaxImageDimension != 8192 || cfg.MaxImagePixels != 40_000_000 {
		t.Errorf("limits = %d/%d", cfg.MaxImageDimension, cfg.MaxImagePixels)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.DatabasePath != dbPath || !cfg.HistoryEnabled {
		t.Errorf("DatabasePath = %q enabled=%v", cfg.DatabasePath, cfg.HistoryEnabled)
	}
	if info, err := os.Stat(filepath.Dir(dbPath)); err != nil || !info.IsDir() {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PIPELINE_WORKERS", "3")
	t.Setenv("PIPELINE_QUEUE_SIZE", "40")
	t.Setenv("CACHE_KEY_STRATEGY", "content_hash")
	t.Setenv("DEFAULT_PRESETS", "square, small")
	t.Setenv("USE_VIPS", "false")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_ADDR", "127.0.0.1:9191")
	t.Setenv("MEMORY_HIGH_WATER_MARK", "0.5")
	t.Setenv("MEMORY_CRITICAL_WATER_MARK", "0.9")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Workers != 3 || cfg.QueueSize != 40 {
		t.Errorf("workers/queue = %d/%d", cfg.Workers, cfg.QueueSize)
	}
	if cfg.KeyStrategy != cache.KeyContentHash {
		t.Errorf("KeyStrategy = %q", cfg.KeyStrategy)
	}
	if !slices.Equal(cfg.DefaultPresets, []string{"square", "small"}) {
		t.Errorf("DefaultPresets = %v", cfg.DefaultPresets)
	}
	if cfg.UseVips || !cfg.MetricsEnabled || cfg.MetricsAddr != "127.0.0.1:9191" {
		t.Errorf("flags = %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}

	mem := cfg.MemoryConfig()
	if mem.HighWaterMark != 0.5 || mem.CriticalWaterMark != 0.9 || mem.CheckInterval == 0 {
		t.Errorf("MemoryConfig() = %+v", mem)
	}
	pc := cfg.PipelineConfig()
	if pc.KeyStrategy != cache.KeyContentHash || pc.Limits.MaxDimension != 8192 || len(pc.DefaultPresets) != 2 {
		t.Errorf("PipelineConfig() = %+v", pc)
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `workers: 6
cache_key_strategy: content_hash
default_presets: [medium]
max_image_dimension: 4096
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// Environment overrides the file.
	t.Setenv("PIPELINE_WORKERS", "2")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want env override 2", cfg.Workers)
	}
	if cfg.KeyStrategy != cache.KeyContentHash || cfg.MaxImageDimension != 4096 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !slices.Equal(cfg.DefaultPresets, []string{"medium"}) {
		t.Errorf("DefaultPresets = %v", cfg.DefaultPresets)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	isolate(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() succeeded with a missing file")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "unknown strategy", key: "CACHE_KEY_STRATEGY", value: "sha1", want: "CACHE_KEY_STRATEGY"},
		{name: "unknown preset", key: "DEFAULT_PRESETS", value: "small,poster", want: "poster"},
		{name: "negative workers", key: "PIPELINE_WORKERS", value: "-1", want: "PIPELINE_WORKERS"},
		{name: "zero dimension", key: "MAX_IMAGE_DIMENSION", value: "0", want: "MAX_IMAGE_DIMENSION"},
		{name: "zero pixels", key: "MAX_IMAGE_PIXELS", value: "0", want: "MAX_IMAGE_PIXELS"},
		{name: "high above critical", key: "MEMORY_HIGH_WATER_MARK", value: "0.95", want: "watermarks"},
		{name: "zero timeout", key: "SHUTDOWN_TIMEOUT", value: "0s", want: "SHUTDOWN_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig("")
			if err == nil {
				t.Fatal("LoadConfig() succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigHistoryDisabled(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		t.Setenv("DATABASE_PATH", "")
		cfg := &Config{}
		if err := cfg.setupHistory(); err != nil {
			t.Fatal(err)
		}
		if cfg.HistoryEnabled {
			t.Error("history enabled without a path")
		}
	})

	t.Run("directory is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		cfg := &Config{DatabasePath: filepath.Join(blocker, "runs.db")}
		if err := cfg.setupHistory(); err != nil {
			t.Fatalf("setupHistory() error = %v", err)
		}
		if cfg.HistoryEnabled {
			t.Error("history enabled in an unusable directory")
		}
	})
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b")
	if err := ensureDirectory(nested, "test"); err != nil {
		t.Fatalf("ensureDirectory() create error = %v", err)
	}
	if err := ensureDirectory(nested, "test"); err != nil {
		t.Errorf("ensureDirectory() existing error = %v", err)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "test"); err == nil {
		t.Error("ensureDirectory() accepted a regular file")
	}
}

func TestTestWriteAccess(t *testing.T) {
	dir := t.TempDir()
	if err := testWriteAccess(dir); err != nil {
		t.Fatalf("testWriteAccess() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file was not removed")
	}
	if err := testWriteAccess(filepath.Join(dir, "missing")); err == nil {
		t.Error("testWriteAccess() succeeded for a missing directory")
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	router.HandleFunc("/metrics", noop).Methods(http.MethodGet).Name("metrics")
	router.HandleFunc("/healthz", noop).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/any", noop)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 4 {
		t.Fatalf("got %d routes, want 4: %+v", len(routes), routes)
	}
	if routes[0] != (RouteInfo{Method: http.MethodGet, Path: "/metrics", Name: "metrics"}) {
		t.Errorf("routes[0] = %+v", routes[0])
	}
	if last := routes[3]; last.Method != "*" || last.Path != "/any" {
		t.Errorf("route without methods = %+v", last)
	}
}

func TestEnabledAndAutoStrings(t *testing.T) {
	if enabledString(true) != "ENABLED" || enabledString(false) != "DISABLED" {
		t.Error("enabledString mismatch")
	}
	if autoString(0) != "auto" || autoString(4) != "4" {
		t.Error("autoString mismatch")
	}
}

func TestLoggingHelpers(t *testing.T) {
	// Must not panic.
	LogBanner()
	LogDatabaseInit(time.Millisecond)
	LogImagingInit(true, false, "")
	LogImagingInit(false, false, "")
	LogPoolInit(4, 200, 2)
	LogHTTPRoutes(mux.NewRouter())
	LogServerStarted(ServerConfig{MetricsAddr: ":9090", StartupDuration: time.Second})
	LogShutdownInitiated("SIGTERM")
	LogShutdownStep("Stopping pool")
	LogShutdownStepComplete("Pool stopped")
	LogShutdownComplete()
}
