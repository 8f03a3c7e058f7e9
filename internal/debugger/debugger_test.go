package debugger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bekirdag/workbench/internal/command"
)

type stubHandle struct{}

func (stubHandle) Terminate() error { return nil }

type scriptedRunner struct {
	exe   string
	args  []string
	lines []string
	exit  *int
	err   error
}

func (r *scriptedRunner) Run(exe string, args []string, _ string, onLine func(string), onExit func(int)) (command.ProcessHandle, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.exe, r.args = exe, args
	for _, line := range r.lines {
		onLine(line)
	}
	if r.exit != nil {
		onExit(*r.exit)
	}
	return stubHandle{}, nil
}

func target(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo")
	if err := os.WriteFile(path, []byte{0x7f}, 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestInitiateReadyOnMarker(t *testing.T) {
	exe := target(t)
	code := 0
	runner := &scriptedRunner{
		lines: []string{"(lldb) target create", "Current executable set to '" + exe + "' (x86_64)."},
		exit:  &code,
	}
	d := NewProcess(runner, nil)
	var got []error
	if _, err := d.Initiate(filepath.Dir(exe), exe, func(err error) { got = append(got, err) }); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("expected one ready signal, got %v", got)
	}
	if runner.exe != "lldb" || runner.args[len(runner.args)-1] != exe {
		t.Fatalf("unexpected invocation %s %v", runner.exe, runner.args)
	}
}

func TestInitiateExitBeforeReady(t *testing.T) {
	exe := target(t)
	code := 1
	d := NewProcess(&scriptedRunner{lines: []string{"error: bad"}, exit: &code}, nil)
	var got error
	if _, err := d.Initiate("", exe, func(err error) { got = err }); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	var early *ExitBeforeReadyError
	if !errors.As(got, &early) || early.Code != 1 {
		t.Fatalf("expected ExitBeforeReadyError, got %v", got)
	}
}

func TestInitiateMissingTarget(t *testing.T) {
	d := NewProcess(&scriptedRunner{}, nil)
	if _, err := d.Initiate("", filepath.Join(t.TempDir(), "missing"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestInitiateRunnerFailure(t *testing.T) {
	exe := target(t)
	d := NewProcess(&scriptedRunner{err: errors.New("lldb not found")}, nil)
	if _, err := d.Initiate("", exe, nil); err == nil {
		t.Fatalf("expected runner error")
	}
}
