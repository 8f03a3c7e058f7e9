package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bekirdag/workbench/internal/command"
)

func TestEmitAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	logger := NewLogger(path, "s-1", "dev")

	cmd := command.New(command.KindBuild, "/w/demo", nil)
	code := 101
	cmd.ExitCode = &code
	cmd.Err = errors.New("process exited with code 101")
	cmd.StartedAt = time.Now().Add(-2 * time.Second)
	cmd.EndedAt = time.Now()

	logger.Emit(CommandEvent("/w/demo", command.StatusChanged{Command: cmd, From: command.Running, To: command.Failed}))
	logger.Emit(Event{})

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("{not json\n")
	_ = f.Close()

	events, skipped, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 1 || skipped != 1 {
		t.Fatalf("expected 1 event and 1 skipped line, got %d and %d", len(events), skipped)
	}
	ev := events[0]
	if ev.Event != "command_failed" || ev.SessionID != "s-1" || ev.UserID != "dev" || ev.Kind != "build" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.ExitCode == nil || *ev.ExitCode != 101 || ev.DurationMS < 1000 {
		t.Fatalf("unexpected outcome fields %+v", ev)
	}
}

func TestNilLoggerDrops(t *testing.T) {
	var logger *Logger
	logger.Emit(Event{Event: "command_running"})
	if logger.Path() != "" {
		t.Fatalf("nil logger has no path")
	}
}

func TestNewLoggerGeneratesSessionID(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), FileName), "", "")
	if logger.sessionID == "" {
		t.Fatalf("expected a generated session id")
	}
}
