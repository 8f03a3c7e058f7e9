package command

import (
	"time"

	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/dispatch"
)

// DefaultTeardownTimeout bounds how long a cancelled process may take to exit.
const DefaultTeardownTimeout = 5 * time.Second

// Options wires a Queue to its control context and observers.
type Options struct {
	// Poster moves action callbacks onto the control context. Without one,
	// callbacks run on whatever goroutine delivers them.
	Poster          dispatch.Poster
	Notifier        Notifier
	Logger          *zap.Logger
	TeardownTimeout time.Duration
	// AfterFunc schedules fn after d and returns a function that cancels it.
	// Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, fn func()) (stop func() bool)
}

// Queue runs commands one at a time in FIFO order. Every method must be
// called from the control context.
type Queue struct {
	poster   dispatch.Poster
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	after    func(time.Duration, func()) func() bool

	pending []*Command
	current *Command
	stopper Stopper
	gen     uint64

	tearingDown bool
	stopTimer   func() bool
	resume      bool
}

// NewQueue returns an idle queue.
func NewQueue(opts Options) *Queue {
	q := &Queue{
		poster:   opts.Poster,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		timeout:  opts.TeardownTimeout,
		after:    opts.AfterFunc,
	}
	if q.poster == nil {
		q.poster = dispatch.PosterFunc(func(fn func()) { fn() })
	}
	if q.logger == nil {
		q.logger = zap.NewNop()
	}
	if q.timeout <= 0 {
		q.timeout = DefaultTeardownTimeout
	}
	if q.after == nil {
		q.after = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}
	return q
}

// Queue appends cmd. It never starts execution.
func (q *Queue) Queue(cmd *Command) error {
	if cmd == nil || cmd.Status != Pending {
		return ErrNotPending
	}
	for _, p := range q.pending {
		if p == cmd {
			return ErrNotPending
		}
	}
	cmd.QueuedAt = time.Now()
	q.pending = append(q.pending, cmd)
	q.notify(Queued{Command: cmd})
	return nil
}

// RunAll starts executing pending commands. A run already in progress is left
// alone; a run requested while a cancelled process is still tearing down
// starts once the teardown resolves.
func (q *Queue) RunAll() {
	if q.tearingDown {
		q.resume = true
		return
	}
	if q.current != nil {
		q.logger.Warn("run requested while a command is running; cancel first",
			zap.String("running", q.current.ID))
		return
	}
	q.advance()
}

// CancelAll cancels every pending command at once and asks the running one to
// stop. The running command becomes Cancelled when its process is gone, or
// Failed with a *TeardownTimeoutError if that takes longer than the teardown
// timeout. Idle queues are left untouched.
func (q *Queue) CancelAll() {
	if q.current == nil && len(q.pending) == 0 {
		return
	}
	q.resume = false
	q.cancelPending()

	if q.current == nil || q.tearingDown {
		return
	}
	q.tearingDown = true
	cmd, g := q.current, q.gen
	if q.stopper != nil {
		if err := q.stopper.Stop(); err != nil {
			q.logger.Warn("stop command", zap.String("command", cmd.ID), zap.Error(err))
		}
	}
	q.stopTimer = q.after(q.timeout, func() {
		q.poster.Post(func() { q.teardownExpired(g) })
	})
}

// Busy reports whether a command is running.
func (q *Queue) Busy() bool { return q.current != nil }

// Current returns the running command, if any.
func (q *Queue) Current() *Command { return q.current }

// Pending returns the commands waiting to run.
func (q *Queue) Pending() []*Command {
	return append([]*Command(nil), q.pending...)
}

func (q *Queue) advance() {
	if len(q.pending) == 0 {
		q.notify(Idle{})
		return
	}
	cmd := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]

	q.gen++
	g := q.gen
	q.current = cmd
	cmd.StartedAt = time.Now()
	q.set(cmd, Running, nil)

	env := Env{
		WorkingDir: cmd.WorkingDir,
		Output: func(line string) {
			q.poster.Post(func() { q.output(g, cmd, line) })
		},
		Done: func(res Result) {
			q.poster.Post(func() { q.done(g, res) })
		},
	}
	stopper, err := cmd.action.Start(env)
	if g != q.gen || q.current != cmd {
		// Done already ran synchronously and the queue moved on.
		return
	}
	if err != nil {
		q.logger.Info("command failed to launch", zap.String("command", cmd.ID), zap.Error(err))
		q.current = nil
		q.gen++
		q.set(cmd, Failed, err)
		q.cancelPending()
		q.notify(Idle{})
		return
	}
	q.stopper = stopper
}

func (q *Queue) output(g uint64, cmd *Command, line string) {
	if g != q.gen || q.current != cmd {
		return
	}
	q.notify(Output{Command: cmd, Line: line})
	if cmd.diagnostics != nil {
		cmd.diagnostics.Consume(line)
	}
}

func (q *Queue) done(g uint64, res Result) {
	if g != q.gen || q.current == nil {
		return
	}
	cmd := q.current
	cmd.ExitCode = res.ExitCode
	q.current = nil
	q.stopper = nil

	if q.tearingDown {
		q.endTeardown()
		q.set(cmd, Cancelled, nil)
		q.afterTeardown()
		return
	}
	if res.Err != nil {
		if code, ok := ExitCode(res.Err); ok && cmd.ExitCode == nil {
			cmd.ExitCode = &code
		}
		q.set(cmd, Failed, res.Err)
		q.cancelPending()
		q.notify(Idle{})
		return
	}
	q.set(cmd, Succeeded, nil)
	q.advance()
}

func (q *Queue) teardownExpired(g uint64) {
	if g != q.gen || q.current == nil || !q.tearingDown {
		return
	}
	cmd := q.current
	q.current = nil
	q.stopper = nil
	q.gen++
	q.endTeardown()
	q.logger.Warn("command teardown timed out", zap.String("command", cmd.ID), zap.Duration("after", q.timeout))
	q.set(cmd, Failed, &TeardownTimeoutError{After: q.timeout})
	q.afterTeardown()
}

func (q *Queue) endTeardown() {
	q.tearingDown = false
	if q.stopTimer != nil {
		q.stopTimer()
		q.stopTimer = nil
	}
}

func (q *Queue) afterTeardown() {
	if q.resume {
		q.resume = false
		q.advance()
		return
	}
	q.notify(Idle{})
}

func (q *Queue) cancelPending() {
	pending := q.pending
	q.pending = nil
	for _, cmd := range pending {
		q.set(cmd, Cancelled, nil)
	}
}

func (q *Queue) set(cmd *Command, to Status, err error) {
	from := cmd.Status
	if terr := cmd.transition(to); terr != nil {
		q.logger.Error("invalid command transition", zap.Error(terr))
		return
	}
	cmd.Err = err
	if to.Terminal() {
		cmd.EndedAt = time.Now()
	}
	q.notify(StatusChanged{Command: cmd, From: from, To: to})
}

func (q *Queue) notify(ev Event) {
	if q.notifier != nil {
		q.notifier.Notify(ev)
	}
}
