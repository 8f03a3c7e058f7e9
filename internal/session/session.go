// Package session ties one open workspace together: its tree, the watcher
// feeding it, the command queue, collected issues and run history.
//
// Every method must be called on the control context given by Deps.Poster.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/dispatch"
	"github.com/bekirdag/workbench/internal/fsevent"
	"github.com/bekirdag/workbench/internal/history"
	"github.com/bekirdag/workbench/internal/issues"
	"github.com/bekirdag/workbench/internal/workspace"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Watcher is the filesystem watcher capability.
type Watcher interface {
	Subscribe(paths []string, onEvents func([]fsevent.Event)) (fsevent.Subscription, error)
}

// Deps are the collaborators of a session.
type Deps struct {
	Poster   dispatch.Poster
	FS       workspace.FileSystem
	Config   workspace.ConfigStore
	Watcher  Watcher
	Runner   command.ProcessRunner
	Debugger command.Debugger
	Tool     command.Tool
	History  *history.Store
	Logger   *zap.Logger

	TeardownTimeout time.Duration
	AfterFunc       func(time.Duration, func()) func() bool

	// OnEvent receives every session event on the control context.
	OnEvent func(Event)
}

// Event is the closed set of session notifications.
type Event interface {
	isSessionEvent()
}

// TreeEvent wraps a tree model notification.
type TreeEvent struct {
	workspace.Event
}

// QueueEvent wraps a command queue notification.
type QueueEvent struct {
	command.Event
}

// IssuesChanged fires when the issue list was reset or grew.
type IssuesChanged struct {
	Count int
}

// Closed fires once when the session ends. Err is set when the workspace
// root disappeared.
type Closed struct {
	Root string
	Err  error
}

func (TreeEvent) isSessionEvent()     {}
func (QueueEvent) isSessionEvent()    {}
func (IssuesChanged) isSessionEvent() {}
func (Closed) isSessionEvent()        {}

// Session is one open workspace.
type Session struct {
	root   string
	deps   Deps
	logger *zap.Logger

	model  *workspace.Model
	queue  *command.Queue
	issues *issues.Collector
	sub    fsevent.Subscription
	closed bool

	// debugging holds debugger sessions started by Run that may still be
	// alive after their launch command succeeded.
	debugging []command.SessionHandle
}

// Open loads root and starts watching it.
func Open(root string, deps Deps) (*Session, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if deps.Poster == nil {
		return nil, errors.New("session: a control context poster is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.FS == nil {
		deps.FS = workspace.OSFileSystem{TrashDir: workspace.TrashPath(abs)}
	}
	if deps.Config == nil {
		deps.Config = workspace.YAMLStore{}
	}
	if deps.Tool.Executable == "" {
		deps.Tool = command.DefaultTool()
	}

	s := &Session{
		root:   abs,
		deps:   deps,
		logger: deps.Logger.With(zap.String("workspace", abs)),
	}
	s.model = workspace.NewModel(workspace.Options{
		FS:       deps.FS,
		Config:   deps.Config,
		Notifier: workspace.NotifierFunc(s.onTreeEvent),
		Logger:   s.logger,
	})
	if _, err := s.model.Load(abs); err != nil {
		return nil, err
	}
	s.queue = command.NewQueue(command.Options{
		Poster:          deps.Poster,
		Notifier:        command.NotifierFunc(s.onQueueEvent),
		Logger:          s.logger,
		TeardownTimeout: deps.TeardownTimeout,
		AfterFunc:       deps.AfterFunc,
	})
	s.issues = issues.NewCollector(abs)
	s.issues.OnChange = func() { s.emit(IssuesChanged{Count: len(s.issues.Issues())}) }

	if err := deps.History.Touch(abs); err != nil {
		s.logger.Warn("record workspace in history", zap.Error(err))
	}
	if deps.Watcher != nil {
		sub, err := deps.Watcher.Subscribe([]string{abs}, func(batch []fsevent.Event) {
			deps.Poster.Post(func() { s.apply(batch) })
		})
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", abs, err)
		}
		s.sub = sub
	}
	s.logger.Info("workspace opened")
	return s, nil
}

// Root is the absolute workspace root.
func (s *Session) Root() string { return s.root }

func (s *Session) Model() *workspace.Model { return s.model }

func (s *Session) Queue() *command.Queue { return s.queue }

func (s *Session) Issues() *issues.Collector { return s.issues }

// History may be nil when no store was configured.
func (s *Session) History() *history.Store { return s.deps.History }

func (s *Session) Closed() bool { return s.closed }

// Operation is a user-triggered workspace action.
type Operation string

const (
	OpBuild Operation = "build"
	OpRun   Operation = "run"
	OpClean Operation = "clean"
	OpStop  Operation = "stop"
)

// Runnable returns the operations that can be triggered right now. Build,
// Clean and Run are available while the session is open; Stop only while a
// command is running or tearing down, or a debugger session is alive.
func (s *Session) Runnable() map[Operation]bool {
	out := map[Operation]bool{}
	if s.closed {
		return out
	}
	out[OpBuild] = s.deps.Runner != nil
	out[OpClean] = s.deps.Runner != nil
	out[OpRun] = s.deps.Runner != nil && s.deps.Debugger != nil
	out[OpStop] = s.queue.Busy() || len(s.queue.Pending()) > 0 || len(s.debugging) > 0
	return out
}

// Trigger runs op by name.
func (s *Session) Trigger(op Operation) error {
	switch op {
	case OpBuild:
		return s.Build()
	case OpRun:
		return s.Run()
	case OpClean:
		return s.Clean()
	case OpStop:
		return s.Stop()
	}
	return fmt.Errorf("unknown operation %q", op)
}

func (s *Session) apply(batch []fsevent.Event) {
	if s.closed {
		return
	}
	s.model.ReconcileBatch(batch)
}

// Build cancels whatever runs and builds the workspace.
func (s *Session) Build() error {
	return s.restart(s.build(command.SubBuild))
}

// Clean cancels whatever runs and cleans build output.
func (s *Session) Clean() error {
	return s.restart(s.build(command.SubClean))
}

// Run cancels whatever runs, builds, and launches the debugger on the result.
func (s *Session) Run() error {
	if s.deps.Debugger == nil {
		return errors.New("session: no debugger configured")
	}
	return s.restart(
		s.build(command.SubBuild),
		command.NewDebugLaunch(s.root, "", trackedDebugger{s: s}),
	)
}

// Stop cancels everything.
func (s *Session) Stop() error {
	if s.closed {
		return ErrClosed
	}
	s.issues.Reset()
	s.queue.CancelAll()
	s.endDebugging()
	return nil
}

func (s *Session) build(sub command.Subcommand) *command.Command {
	return command.NewBuild(s.root, sub, s.deps.Runner, s.deps.Tool, s.issues)
}

func (s *Session) restart(cmds ...*command.Command) error {
	if s.closed {
		return ErrClosed
	}
	if s.deps.Runner == nil {
		return errors.New("session: no process runner configured")
	}
	s.issues.Reset()
	s.queue.CancelAll()
	s.endDebugging()
	for _, cmd := range cmds {
		if err := s.queue.Queue(cmd); err != nil {
			return err
		}
	}
	s.queue.RunAll()
	return nil
}

// Close stops watching, cancels running work and writes the sidecar.
func (s *Session) Close() error {
	return s.shutdown(nil)
}

func (s *Session) shutdown(cause error) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.queue.CancelAll()
	s.endDebugging()
	var err error
	if cause == nil {
		err = s.model.Save()
	}
	s.logger.Info("workspace closed", zap.Error(cause))
	s.emit(Closed{Root: s.root, Err: cause})
	return err
}

// trackedDebugger records every session it starts so Stop, Close and the
// next Run can end it.
type trackedDebugger struct {
	s *Session
}

func (d trackedDebugger) Initiate(dir, executable string, ready func(error)) (command.SessionHandle, error) {
	handle, err := d.s.deps.Debugger.Initiate(dir, executable, ready)
	if err == nil && handle != nil {
		d.s.debugging = append(d.s.debugging, handle)
	}
	return handle, err
}

func (s *Session) endDebugging() {
	for _, handle := range s.debugging {
		if err := handle.Terminate(); err != nil {
			s.logger.Warn("terminate debugger", zap.Error(err))
		}
	}
	s.debugging = nil
}

func (s *Session) onTreeEvent(ev workspace.Event) {
	s.emit(TreeEvent{Event: ev})
	if gone, ok := ev.(workspace.WorkspaceRootDisappeared); ok {
		_ = s.shutdown(gone.Err)
	}
}

func (s *Session) onQueueEvent(ev command.Event) {
	if changed, ok := ev.(command.StatusChanged); ok {
		if changed.To.Terminal() {
			s.issues.Flush()
		}
		if err := s.deps.History.RecordRun(history.RunFromCommand(s.root, changed.Command)); err != nil {
			s.logger.Warn("record run", zap.String("command", changed.Command.ID), zap.Error(err))
		}
	}
	s.emit(QueueEvent{Event: ev})
}

func (s *Session) emit(ev Event) {
	if s.deps.OnEvent != nil {
		s.deps.OnEvent(ev)
	}
}
