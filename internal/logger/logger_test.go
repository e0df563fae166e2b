package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	log, err := New(Config{
		Level:   "info",
		Format:  "json",
		Service: "test-service",
		Version: "1.0.0",
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if log.Logger == nil {
		t.Fatal("New() returned logger with nil slog.Logger")
	}
	if err := log.Close(); err != nil {
		t.Errorf("Close() without file sink should be nil, got %v", err)
	}
}

func TestNew_FileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, err := New(Config{
		Level:     "debug",
		Format:    "json",
		Service:   "test-service",
		Version:   "1.0.0",
		Dir:       dir,
		MaxSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer log.Close()

	log.Info("test message", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "mongodb-mcp-server.log"))
	if err != nil {
		t.Fatalf("log file should exist after writing: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file should contain the written record")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"debug lowercase", "debug", "DEBUG"},
		{"warn", "warn", "WARN"},
		{"python style warning", "warning", "WARN"},
		{"error uppercase", "ERROR", "ERROR"},
		{"unknown defaults to info", "verbose", "INFO"},
		{"empty defaults to info", "", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.input).String(); got != tt.want {
				t.Errorf("parseLevel(%q) = %s, expected %s", tt.input, got, tt.want)
			}
		})
	}
}
