package command

import (
	"path/filepath"
)

// ProcessHandle controls a started process.
type ProcessHandle interface {
	// Terminate requests a cooperative shutdown.
	Terminate() error
}

// ProcessRunner spawns one external process. onLine receives each output
// line and onExit the exit code, both possibly from other goroutines.
type ProcessRunner interface {
	Run(exe string, args []string, dir string, onLine func(string), onExit func(code int)) (ProcessHandle, error)
}

// SessionHandle controls a debugger session.
type SessionHandle interface {
	Terminate() error
}

// Debugger starts debugging sessions. ready is called once, with nil when the
// session is up or an error when it could not come up.
type Debugger interface {
	Initiate(dir, executable string, ready func(error)) (SessionHandle, error)
}

// Subcommand selects what the build tool does.
type Subcommand string

const (
	SubBuild Subcommand = "build"
	SubClean Subcommand = "clean"
)

// Tool describes how to invoke the build tool.
type Tool struct {
	Executable string
	BuildArgs  []string
	CleanArgs  []string
}

// DefaultTool runs cargo.
func DefaultTool() Tool {
	return Tool{
		Executable: "cargo",
		BuildArgs:  []string{"build"},
		CleanArgs:  []string{"clean"},
	}
}

// Args returns the argument list for sub.
func (t Tool) Args(sub Subcommand) []string {
	var args []string
	switch sub {
	case SubClean:
		args = t.CleanArgs
	default:
		args = t.BuildArgs
	}
	if len(args) == 0 {
		args = []string{string(sub)}
	}
	return append([]string(nil), args...)
}

// BuildCommand runs the build tool with a subcommand. Success is exit code 0.
type BuildCommand struct {
	Runner     ProcessRunner
	Tool       Tool
	Subcommand Subcommand
}

// NewBuild returns a queued-ready build or clean command. Every output line is
// handed to diagnostics when it is non-nil.
func NewBuild(dir string, sub Subcommand, runner ProcessRunner, tool Tool, diagnostics Diagnostics) *Command {
	kind := KindBuild
	if sub == SubClean {
		kind = KindClean
	}
	cmd := New(kind, dir, BuildCommand{Runner: runner, Tool: tool, Subcommand: sub})
	if diagnostics != nil {
		cmd.WithDiagnostics(diagnostics)
	}
	return cmd
}

func (b BuildCommand) Start(env Env) (Stopper, error) {
	exe := b.Tool.Executable
	if exe == "" {
		exe = DefaultTool().Executable
	}
	handle, err := b.Runner.Run(exe, b.Tool.Args(b.Subcommand), env.WorkingDir, env.Output, func(code int) {
		res := Result{ExitCode: &code}
		if code != 0 {
			res.Err = &ProcessExitError{Code: code}
		}
		env.Done(res)
	})
	if err != nil {
		return nil, &ProcessLaunchError{Executable: exe, Err: err}
	}
	return StopFunc(handle.Terminate), nil
}

// DebugLaunchCommand hands the built executable to the debugger and succeeds
// once the debugger reports ready. It relies on the queue's fail-fast rule to
// never run after a failed build.
type DebugLaunchCommand struct {
	Debugger   Debugger
	Executable string
}

// NewDebugLaunch returns a command that debugs executable, or the default
// build output for dir when executable is empty.
func NewDebugLaunch(dir, executable string, debugger Debugger) *Command {
	if executable == "" {
		executable = DefaultExecutable(dir)
	}
	return New(KindDebugLaunch, dir, DebugLaunchCommand{Debugger: debugger, Executable: executable})
}

// DefaultExecutable is the debug build output named after the workspace.
func DefaultExecutable(dir string) string {
	return filepath.Join(dir, "target", "debug", filepath.Base(dir))
}

func (d DebugLaunchCommand) Start(env Env) (Stopper, error) {
	session, err := d.Debugger.Initiate(env.WorkingDir, d.Executable, func(err error) {
		env.Done(Result{Err: err})
	})
	if err != nil {
		return nil, &ProcessLaunchError{Executable: d.Executable, Err: err}
	}
	return StopFunc(session.Terminate), nil
}
