package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"Debug JSON", "debug", "json"},
		{"Info JSON", "info", "json"},
		{"Warn text", "warn", "text"},
		{"Error text", "error", "text"},
		{"Unknown level falls back", "verbose", "json"},
		{"Unknown format falls back", "info", "logfmt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, tt.format, &buf)
			if logger == nil {
				t.Fatal("expected logger to be created")
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Info when info level", "info", Info, "info message", true},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Error when warn level", "warn", Error, "error message", true},
		{"Info when error level", "error", Info, "info message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.logLevel, "json", &buf))

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("expected log output to contain %q, got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("expected log output NOT to contain %q, but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", "json", &buf))

	Info("iteration complete", "iteration", 3, "best_cd", 0.0142)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}
	if entry["msg"] != "iteration complete" {
		t.Errorf("expected msg 'iteration complete', got %v", entry["msg"])
	}
	if entry["iteration"] != float64(3) {
		t.Errorf("expected iteration 3, got %v", entry["iteration"])
	}
	if entry["best_cd"] != 0.0142 {
		t.Errorf("expected best_cd 0.0142, got %v", entry["best_cd"])
	}
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", "json", &buf))

	WithSession("opt-20260826-101500-a1b2c3d4").Info("session created")

	output := buf.String()
	if !strings.Contains(output, "session_id") {
		t.Error("expected log output to contain 'session_id'")
	}
	if !strings.Contains(output, "opt-20260826-101500-a1b2c3d4") {
		t.Error("expected log output to contain the session id")
	}
}
