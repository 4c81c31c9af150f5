package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"warn":     slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"info":     slog.LevelInfo,
		"nonsense": slog.LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewWritesToFileAsJSONAndRespectsFileLevel(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	logger, closeFn, err := New(slog.LevelError, slog.LevelInfo, logPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("should not appear", "x", 1)
	logger.Info("deduplication completed", "band", 3, "num_detected", 7)
	if err := closeFn(); err != nil {
		t.Fatalf("closeFn: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line in log file (debug filtered out), got %d: %q", len(lines), lines)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "deduplication completed" {
		t.Fatalf("msg = %v, want %q", rec["msg"], "deduplication completed")
	}
	if rec["band"] != float64(3) {
		t.Fatalf("band = %v, want 3", rec["band"])
	}
}

func TestNewWithEmptyPathDropsFileSink(t *testing.T) {
	logger, closeFn, err := New(slog.LevelInfo, slog.LevelInfo, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("no file configured")
	if err := closeFn(); err != nil {
		t.Fatalf("closeFn: %v", err)
	}
}
