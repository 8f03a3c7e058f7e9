// Package command runs external-process work strictly one item at a time.
// A failed item cancels everything queued behind it.
package command

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what a Command does.
type Kind string

const (
	KindBuild       Kind = "build"
	KindClean       Kind = "clean"
	KindDebugLaunch Kind = "debug"
)

// Status is the lifecycle state of a Command.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case Succeeded, Failed, Cancelled:
		return true
	default:
		return false
	}
}

func allowed(from, to Status) bool {
	switch from {
	case Pending:
		return to == Running || to == Cancelled
	case Running:
		return to == Succeeded || to == Failed || to == Cancelled
	default:
		return false
	}
}

// Command is one unit of queued work. Only the queue's loop mutates it.
type Command struct {
	ID         string
	Kind       Kind
	WorkingDir string
	Status     Status
	ExitCode   *int
	Err        error

	QueuedAt  time.Time
	StartedAt time.Time
	EndedAt   time.Time

	action      Action
	diagnostics Diagnostics
}

// New returns a pending command that runs action in dir.
func New(kind Kind, dir string, action Action) *Command {
	return &Command{
		ID:         uuid.NewString(),
		Kind:       kind,
		WorkingDir: dir,
		Status:     Pending,
		action:     action,
	}
}

// WithDiagnostics routes every output line of c to sink.
func (c *Command) WithDiagnostics(sink Diagnostics) *Command {
	c.diagnostics = sink
	return c
}

// Duration is the run time of a started command.
func (c *Command) Duration() time.Duration {
	if c.StartedAt.IsZero() {
		return 0
	}
	end := c.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(c.StartedAt)
}

func (c *Command) String() string {
	return fmt.Sprintf("%s[%s] %s", c.Kind, c.Status, c.WorkingDir)
}

func (c *Command) transition(to Status) error {
	if !allowed(c.Status, to) {
		return fmt.Errorf("command %s: disallowed transition %s -> %s", c.ID, c.Status, to)
	}
	c.Status = to
	return nil
}

// Result is what an action reports when it finishes.
type Result struct {
	ExitCode *int
	Err      error
}

// Env is handed to an action when it starts. Output and Done may be called
// from any goroutine; the queue moves them onto its control context. Done
// must be called once.
type Env struct {
	WorkingDir string
	Output     func(line string)
	Done       func(Result)
}

// Stopper asks a started action to wind down. The action still reports
// through Done once it has.
type Stopper interface {
	Stop() error
}

// StopFunc adapts a function to Stopper.
type StopFunc func() error

func (f StopFunc) Stop() error {
	if f == nil {
		return nil
	}
	return f()
}

// Action is the work behind a Command. A returned error means the action
// could not be launched at all.
type Action interface {
	Start(env Env) (Stopper, error)
}

// Diagnostics receives build output lines for issue parsing.
type Diagnostics interface {
	Consume(line string)
}

// Event is the closed set of queue notifications.
type Event interface {
	isQueueEvent()
}

// Queued fires when a command joins the queue.
type Queued struct {
	Command *Command
}

// StatusChanged fires on every lifecycle transition.
type StatusChanged struct {
	Command  *Command
	From, To Status
}

// Output carries one line produced by a running command.
type Output struct {
	Command *Command
	Line    string
}

// Idle fires when a run ends and nothing is running.
type Idle struct{}

func (Queued) isQueueEvent()        {}
func (StatusChanged) isQueueEvent() {}
func (Output) isQueueEvent()        {}
func (Idle) isQueueEvent()          {}

// Notifier receives queue events on the control context.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) {
	if f != nil {
		f(ev)
	}
}
