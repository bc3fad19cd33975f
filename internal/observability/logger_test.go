package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ClawdCity-Messaging/internal/config"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "host.log")
	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("channel configured")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"channel configured"`) {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("level not applied: %s", data)
	}
}

func TestNewLoggerRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	logger, err := NewLogger(config.LogConfig{
		Outputs:  []string{"ignored.log"},
		Rotation: config.RotationConfig{Enable: true, Filename: path},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("rotated line")
	_ = logger.Sync()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("rotation file not written: %v", err)
	}
}

func TestNewLoggerRejectsBadSettings(t *testing.T) {
	if _, err := NewLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := NewLogger(config.LogConfig{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}
