// Package settings loads the application settings file.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/process"
)

const fileName = "settings.yaml"

// Settings is the user-editable application configuration.
type Settings struct {
	BuildCommand    string        `yaml:"build_command,omitempty"`
	CleanCommand    string        `yaml:"clean_command,omitempty"`
	Debugger        string        `yaml:"debugger,omitempty"`
	TeardownTimeout time.Duration `yaml:"teardown_timeout,omitempty"`
	WatchLatency    time.Duration `yaml:"watch_latency,omitempty"`
	LogLevel        string        `yaml:"log_level,omitempty"`
	LogFormat       string        `yaml:"log_format,omitempty"`
	Theme           string        `yaml:"theme,omitempty"`
	Pinned          []string      `yaml:"pinned,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		BuildCommand:    "cargo build",
		CleanCommand:    "cargo clean",
		Debugger:        "lldb",
		TeardownTimeout: command.DefaultTeardownTimeout,
		WatchLatency:    150 * time.Millisecond,
		LogLevel:        "info",
		LogFormat:       "json",
		Theme:           "auto",
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "workbench")
}

// Load reads settings from dir, filling unset fields with defaults. It
// returns the file path so callers can save back to it.
func Load(dir string) (*Settings, string, error) {
	path := filepath.Join(dir, fileName)
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, path, nil
		}
		return &cfg, path, err
	}
	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return &cfg, path, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.merge(file)
	return &cfg, path, nil
}

// Save writes cfg to path.
func Save(cfg *Settings, path string) error {
	if cfg == nil {
		d := Default()
		cfg = &d
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Settings) merge(file Settings) {
	if v := strings.TrimSpace(file.BuildCommand); v != "" {
		s.BuildCommand = v
	}
	if v := strings.TrimSpace(file.CleanCommand); v != "" {
		s.CleanCommand = v
	}
	if v := strings.TrimSpace(file.Debugger); v != "" {
		s.Debugger = v
	}
	if file.TeardownTimeout > 0 {
		s.TeardownTimeout = file.TeardownTimeout
	}
	if file.WatchLatency > 0 {
		s.WatchLatency = file.WatchLatency
	}
	if file.LogLevel != "" {
		s.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		s.LogFormat = file.LogFormat
	}
	if file.Theme != "" {
		s.Theme = file.Theme
	}
	s.Pinned = file.Pinned
}

// Tool parses the build and clean command lines. Both must name the same
// executable.
func (s Settings) Tool() (command.Tool, error) {
	exe, buildArgs, err := process.Split(s.BuildCommand)
	if err != nil {
		return command.Tool{}, fmt.Errorf("build_command: %w", err)
	}
	cleanExe, cleanArgs, err := process.Split(s.CleanCommand)
	if err != nil {
		return command.Tool{}, fmt.Errorf("clean_command: %w", err)
	}
	if cleanExe != exe {
		return command.Tool{}, fmt.Errorf("clean_command runs %q but build_command runs %q", cleanExe, exe)
	}
	return command.Tool{Executable: exe, BuildArgs: buildArgs, CleanArgs: cleanArgs}, nil
}

// DebuggerArgs splits the debugger command line.
func (s Settings) DebuggerArgs() (string, []string, error) {
	return process.Split(s.Debugger)
}

// Pin adds path to the pinned workspaces.
func (s *Settings) Pin(path string) {
	for _, p := range s.Pinned {
		if p == path {
			return
		}
	}
	s.Pinned = append(s.Pinned, path)
}

// Unpin removes path from the pinned workspaces.
func (s *Settings) Unpin(path string) {
	out := s.Pinned[:0]
	for _, p := range s.Pinned {
		if p != path {
			out = append(out, p)
		}
	}
	s.Pinned = out
}
