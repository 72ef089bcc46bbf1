package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		level    string
		expected LogLevel
	}{
		{name: "Debug via LOG_LEVEL", level: "debug", expected: LevelDebug},
		{name: "Info via LOG_LEVEL", level: "info", expected: LevelInfo},
		{name: "Warn via LOG_LEVEL", level: "warn", expected: LevelWarn},
		{name: "Error via LOG_LEVEL", level: "error", expected: LevelError},
		{name: "Case insensitive", level: "DEBUG", expected: LevelDebug},
		{name: "Warning alias", level: "warning", expected: LevelWarn},
		{name: "Unknown defaults to info", level: "verbose", expected: LevelInfo},
		{name: "Empty defaults to info", expected: LevelInfo},
		{name: "DEBUG overrides LOG_LEVEL", debug: "true", level: "error", expected: LevelDebug},
		{name: "DEBUG=1", debug: "1", expected: LevelDebug},
		{name: "DEBUG=off ignored", debug: "off", level: "warn", expected: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.debug, tt.level); got != tt.expected {
				t.Errorf("parseLevel(%q, %q) = %v, want %v", tt.debug, tt.level, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestErrorAlwaysWritten(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	Error("disk %s is full", "cache")

	if !strings.Contains(buf.String(), "disk cache is full") {
		t.Errorf("Error() output = %q, want formatted message", buf.String())
	}
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Error() output = %q, want level tag", buf.String())
	}
}

func TestPoolLogger(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("PoolLogger.Printf panicked: %v", r)
		}
	}()
	PoolLogger{}.Printf("worker %d exited", 3)
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
