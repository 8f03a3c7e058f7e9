package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "workbench.log")
	logger, _, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("unexpected log contents %q", data)
	}
}

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	_, level, err := New(Config{Level: "loud", OutputPath: "stderr"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if level.String() != "info" {
		t.Fatalf("expected info, got %s", level)
	}
}

func TestGlobalLevel(t *testing.T) {
	if err := Init(Config{Level: "warn", OutputPath: filepath.Join(t.TempDir(), "g.log")}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if L().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug must be disabled at warn")
	}
	SetLevel("debug")
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("SetLevel did not take effect")
	}
	_ = Sync()
}
