package media

import (
	"testing"

	"media-pipeline/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// NOTE: govips doesn't support stopping and restarting vips in the same process,
// so these tests never start it. The rest of the package runs on the Go decoders.

func TestVipsNotAvailableByDefault(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips was started by another test")
	}
	if got := VipsVersion(); got != "none" {
		t.Errorf("VipsVersion() = %q, want none", got)
	}
	if _, err := LoadImageWithVips("/does/not/matter.jpg", 10, 10); err == nil {
		t.Error("LoadImageWithVips() succeeded without libvips")
	}
}

func TestVipsLogging(t *testing.T) {
	tests := []struct {
		name      string
		appLevel  logging.LogLevel
		wantLevel vips.LogLevel
	}{
		{name: "debug", appLevel: logging.LevelDebug, wantLevel: vips.LogLevelInfo},
		{name: "info", appLevel: logging.LevelInfo, wantLevel: vips.LogLevelWarning},
		{name: "warn", appLevel: logging.LevelWarn, wantLevel: vips.LogLevelError},
		{name: "error", appLevel: logging.LevelError, wantLevel: vips.LogLevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, handler := vipsLogging(tt.appLevel)
			if level != tt.wantLevel {
				t.Errorf("vipsLogging(%v) level = %v, want %v", tt.appLevel, level, tt.wantLevel)
			}
			// Must not panic for any level.
			for _, l := range []vips.LogLevel{
				vips.LogLevelError, vips.LogLevelCritical, vips.LogLevelWarning,
				vips.LogLevelMessage, vips.LogLevelInfo, vips.LogLevelDebug,
			} {
				handler("VIPS", l, "test message")
			}
		})
	}
}
