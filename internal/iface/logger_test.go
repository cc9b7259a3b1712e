package iface

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, err := NewLogger(path, "debug")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("hello from test")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("Expected message in log file, got %q", data)
	}
	if !strings.Contains(string(data), "DEBUG") {
		t.Errorf("Expected capital level in log file, got %q", data)
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")

	logger, err := NewLogger(path, "warn")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "quiet") {
		t.Error("Expected info to be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("Expected warn message in log file")
	}
}
