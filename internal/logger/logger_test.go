package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")

	cfg := FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Compress:   false,
	}

	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	defer Sync()

	Info("hello from test")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"debug", "debug"},
		{"warn", "warn"},
		{"error", "error"},
		{"info", "info"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
