package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(path) != "settings.yaml" {
		t.Fatalf("unexpected path %q", path)
	}
	if cfg.BuildCommand != "cargo build" || cfg.TeardownTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadMergesFile(t *testing.T) {
	dir := t.TempDir()
	data := "build_command: make all\nclean_command: make clean\nteardown_timeout: 2s\npinned:\n  - /w/demo\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TeardownTimeout != 2*time.Second || cfg.Debugger != "lldb" || len(cfg.Pinned) != 1 {
		t.Fatalf("unexpected merge %+v", cfg)
	}
	tool, err := cfg.Tool()
	if err != nil {
		t.Fatalf("Tool: %v", err)
	}
	if tool.Executable != "make" || tool.BuildArgs[0] != "all" || tool.CleanArgs[0] != "clean" {
		t.Fatalf("unexpected tool %+v", tool)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("build_command: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load(dir)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.BuildCommand != "cargo build" {
		t.Fatalf("defaults must survive a parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Pin("/w/a")
	cfg.Pin("/w/a")
	cfg.Pin("/w/b")
	cfg.Unpin("/w/a")
	path := filepath.Join(dir, "settings.yaml")
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Pinned) != 1 || loaded.Pinned[0] != "/w/b" {
		t.Fatalf("unexpected pins %v", loaded.Pinned)
	}
	if loaded.WatchLatency != cfg.WatchLatency {
		t.Fatalf("duration did not round trip: %s", loaded.WatchLatency)
	}
}

func TestToolRejectsMismatchedExecutables(t *testing.T) {
	cfg := Default()
	cfg.CleanCommand = "make clean"
	if _, err := cfg.Tool(); err == nil {
		t.Fatalf("expected mismatch error")
	}
}
