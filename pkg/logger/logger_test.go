package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"error", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLoggerTo(&bytes.Buffer{}, tt.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if GetLogger() == nil {
				t.Fatal("GetLogger() returned nil")
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := InitLoggerTo(&bytes.Buffer{}, "verbose"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestInitLoggerTo_WritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "info"); err != nil {
		t.Fatal(err)
	}

	GetLogger().Info("document loaded", "tracks", 2)

	out := buf.String()
	if !strings.Contains(out, "document loaded") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "tracks=2") {
		t.Errorf("output missing attribute: %q", out)
	}
	if !strings.Contains(out, "level=INFO") {
		t.Errorf("output missing level: %q", out)
	}
}

func TestInitLoggerTo_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "warn"); err != nil {
		t.Fatal(err)
	}

	GetLogger().Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at warn level: %q", buf.String())
	}

	GetLogger().Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	globalLogger = nil
	if GetLogger() == nil {
		t.Fatal("GetLogger() must fall back to the default logger")
	}
}
