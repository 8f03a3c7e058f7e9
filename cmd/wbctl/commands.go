package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/debugger"
	"github.com/bekirdag/workbench/internal/dispatch"
	"github.com/bekirdag/workbench/internal/history"
	"github.com/bekirdag/workbench/internal/logging"
	"github.com/bekirdag/workbench/internal/process"
	"github.com/bekirdag/workbench/internal/session"
	"github.com/bekirdag/workbench/internal/settings"
	"github.com/bekirdag/workbench/internal/telemetry"
)

var errInterrupted = errors.New("interrupted")

var quiet bool

var buildCmd = &cobra.Command{
	Use:   "build [workspace]",
	Short: "Build the workspace and report diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd.Context(), session.OpBuild, args, cmd.OutOrStdout())
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean [workspace]",
	Short: "Remove build output",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd.Context(), session.OpClean, args, cmd.OutOrStdout())
	},
}

var runCmd = &cobra.Command{
	Use:   "run [workspace]",
	Short: "Build the workspace and start the debugger on the result",
	Long: `Build the workspace and, when the build succeeds, launch the configured
debugger on target/debug/<workspace name>. The command keeps streaming debugger
output until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd.Context(), session.OpRun, args, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{buildCmd, cleanCmd, runCmd} {
		c.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary and diagnostics")
	}
}

// headless prints session events and tracks when the queue goes idle. It only
// runs on the loop goroutine.
type headless struct {
	out       io.Writer
	telemetry *telemetry.Logger
	root      string
	idle      bool
	failure   error
	issues    int
}

func (h *headless) handle(ev session.Event) {
	switch ev := ev.(type) {
	case session.QueueEvent:
		switch qe := ev.Event.(type) {
		case command.Output:
			if !quiet {
				fmt.Fprintln(h.out, qe.Line)
			}
		case command.StatusChanged:
			h.telemetry.Emit(telemetry.CommandEvent(h.root, qe))
			switch qe.To {
			case command.Running:
				fmt.Fprintf(h.out, "==> %s\n", qe.Command.Kind)
			case command.Succeeded:
				fmt.Fprintf(h.out, "==> %s succeeded in %s\n", qe.Command.Kind, qe.Command.Duration().Round(time.Millisecond))
			case command.Failed:
				h.failure = qe.Command.Err
				fmt.Fprintf(h.out, "==> %s failed: %v\n", qe.Command.Kind, qe.Command.Err)
			case command.Cancelled:
				fmt.Fprintf(h.out, "==> %s cancelled\n", qe.Command.Kind)
			}
		case command.Idle:
			h.idle = true
		}
	case session.IssuesChanged:
		h.issues = ev.Count
	}
}

func runOperation(ctx context.Context, op session.Operation, args []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	root, err := workspaceArg(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := settings.Load(configDir)
	if err != nil {
		return err
	}
	tool, err := cfg.Tool()
	if err != nil {
		return fmt.Errorf("%s: %w", cfgPath, err)
	}
	logger := logging.L()

	store, err := history.Open(configDir)
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
	}
	defer store.Close()

	loop := dispatch.NewLoop()
	runner := process.NewPTYRunner(logger)
	var dbg command.Debugger
	if op == session.OpRun {
		exe, dbgArgs, err := cfg.DebuggerArgs()
		if err != nil {
			return fmt.Errorf("%s: debugger: %w", cfgPath, err)
		}
		p := debugger.NewProcess(runner, logger)
		p.Executable = exe
		p.Args = dbgArgs
		p.Output = func(line string) {
			loop.Post(func() { fmt.Fprintln(out, line) })
		}
		dbg = p
	}

	h := &headless{
		out:       out,
		telemetry: telemetry.NewLogger(filepath.Join(configDir, telemetry.FileName), "", telemetry.ResolveUserID()),
		root:      root,
	}
	s, err := session.Open(root, session.Deps{
		Poster:          loop,
		Runner:          runner,
		Debugger:        dbg,
		Tool:            tool,
		History:         store,
		Logger:          logger,
		TeardownTimeout: cfg.TeardownTimeout,
		OnEvent:         h.handle,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Trigger(op); err != nil {
		return err
	}
	if err := loop.RunUntil(ctx, func() bool { return h.idle }); err != nil {
		h.idle = false
		_ = s.Stop()
		wait, cancel := context.WithTimeout(context.Background(), cfg.TeardownTimeout+time.Second)
		defer cancel()
		_ = loop.RunUntil(wait, func() bool { return h.idle || !s.Queue().Busy() })
		return errInterrupted
	}

	for _, issue := range s.Issues().Issues() {
		fmt.Fprintln(out, issue.String())
	}
	if h.issues > 0 {
		fmt.Fprintf(out, "%d issue(s)\n", h.issues)
	}
	if h.failure != nil {
		return h.failure
	}
	if op == session.OpRun {
		fmt.Fprintln(out, "debugger ready; press ctrl+c to end the session")
		_ = loop.Run(ctx)
	}
	return nil
}

// exitCodeOf maps a failed build to the tool's own exit code.
func exitCodeOf(err error) (int, bool) {
	if errors.Is(err, errInterrupted) {
		return 130, true
	}
	if code, ok := command.ExitCode(err); ok && code > 0 {
		return code, true
	}
	return 0, false
}
