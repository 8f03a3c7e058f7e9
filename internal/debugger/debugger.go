// Package debugger starts debugging sessions by running a command-line
// debugger and watching its output for the point where the target is loaded.
package debugger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/command"
)

// DefaultReadyMarker is what lldb prints once the target executable is set.
const DefaultReadyMarker = "Current executable set to"

// ExitBeforeReadyError means the debugger quit before it reported ready.
type ExitBeforeReadyError struct {
	Code int
}

func (e *ExitBeforeReadyError) Error() string {
	return fmt.Sprintf("debugger exited with code %d before it was ready", e.Code)
}

// Process is a command.Debugger backed by an external debugger process.
type Process struct {
	Runner      command.ProcessRunner
	Executable  string
	Args        []string
	ReadyMarker string
	// Output receives every debugger line when set. It is called from the
	// runner's goroutine.
	Output func(line string)
	Logger *zap.Logger
}

// NewProcess returns an lldb-backed debugger.
func NewProcess(runner command.ProcessRunner, logger *zap.Logger) *Process {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Process{
		Runner:      runner,
		Executable:  "lldb",
		ReadyMarker: DefaultReadyMarker,
		Logger:      logger,
	}
}

// Initiate launches the debugger on executable. ready fires once: nil when
// the marker line shows up, an *ExitBeforeReadyError if the debugger exits
// first.
func (p *Process) Initiate(dir, executable string, ready func(error)) (command.SessionHandle, error) {
	info, err := os.Stat(executable)
	if err != nil {
		return nil, fmt.Errorf("debug target: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("debug target %s is a directory", executable)
	}

	marker := p.ReadyMarker
	if marker == "" {
		marker = DefaultReadyMarker
	}
	var once sync.Once
	signal := func(err error) {
		once.Do(func() {
			if ready != nil {
				ready(err)
			}
		})
	}

	args := append(append([]string{}, p.Args...), executable)
	handle, err := p.Runner.Run(p.Executable, args, dir, func(line string) {
		if p.Output != nil {
			p.Output(line)
		}
		if strings.Contains(line, marker) {
			signal(nil)
		}
	}, func(code int) {
		signal(&ExitBeforeReadyError{Code: code})
	})
	if err != nil {
		return nil, err
	}
	p.logger().Info("debug session starting", zap.String("target", executable), zap.String("debugger", p.Executable))
	return handle, nil
}

func (p *Process) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
