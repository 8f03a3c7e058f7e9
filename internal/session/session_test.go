package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/dispatch"
	"github.com/bekirdag/workbench/internal/fsevent"
	"github.com/bekirdag/workbench/internal/history"
	"github.com/bekirdag/workbench/internal/workspace"
)

type fakeProc struct {
	runner     *fakeRunner
	args       []string
	onLine     func(string)
	onExit     func(int)
	terminated int
	exited     bool
}

func (p *fakeProc) Terminate() error {
	p.terminated++
	return nil
}

func (p *fakeProc) exit(code int) {
	if !p.exited {
		p.exited = true
		p.runner.live--
	}
	p.onExit(code)
}

type fakeRunner struct {
	procs   []*fakeProc
	live    int
	maxLive int
}

func (r *fakeRunner) Run(exe string, args []string, dir string, onLine func(string), onExit func(int)) (command.ProcessHandle, error) {
	p := &fakeProc{runner: r, args: args, onLine: onLine, onExit: onExit}
	r.procs = append(r.procs, p)
	r.live++
	if r.live > r.maxLive {
		r.maxLive = r.live
	}
	return p, nil
}

type fakeDebugger struct {
	initiated []string
	sessions  []*fakeSession
	ready     func(error)
}

type fakeSession struct{ terminated int }

func (s *fakeSession) Terminate() error {
	s.terminated++
	return nil
}

func (d *fakeDebugger) Initiate(dir, exe string, ready func(error)) (command.SessionHandle, error) {
	d.initiated = append(d.initiated, exe)
	d.ready = ready
	sess := &fakeSession{}
	d.sessions = append(d.sessions, sess)
	return sess, nil
}

type fakeSub struct{ unsubscribed int }

func (s *fakeSub) Unsubscribe() { s.unsubscribed++ }

type fakeWatcher struct {
	paths    []string
	onEvents func([]fsevent.Event)
	sub      *fakeSub
}

func (w *fakeWatcher) Subscribe(paths []string, onEvents func([]fsevent.Event)) (fsevent.Subscription, error) {
	w.paths = paths
	w.onEvents = onEvents
	w.sub = &fakeSub{}
	return w.sub, nil
}

type harness struct {
	t        *testing.T
	root     string
	loop     *dispatch.Loop
	runner   *fakeRunner
	debugger *fakeDebugger
	watcher  *fakeWatcher
	history  *history.Store
	events   []Event
	session  *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := filepath.Join(t.TempDir(), "demo")
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := history.Open(t.TempDir())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		t:        t,
		root:     root,
		loop:     dispatch.NewLoop(),
		runner:   &fakeRunner{},
		debugger: &fakeDebugger{},
		watcher:  &fakeWatcher{},
		history:  store,
	}
	s, err := Open(root, Deps{
		Poster:   h.loop,
		Watcher:  h.watcher,
		Runner:   h.runner,
		Debugger: h.debugger,
		History:  store,
		AfterFunc: func(time.Duration, func()) func() bool {
			return func() bool { return true }
		},
		OnEvent: func(ev Event) { h.events = append(h.events, ev) },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h.session = s
	return h
}

func (h *harness) proc(i int) *fakeProc {
	h.t.Helper()
	if i >= len(h.runner.procs) {
		h.t.Fatalf("process %d was never started", i)
	}
	return h.runner.procs[i]
}

func (h *harness) closedEvents() []Closed {
	var out []Closed
	for _, ev := range h.events {
		if c, ok := ev.(Closed); ok {
			out = append(out, c)
		}
	}
	return out
}

func TestOpenLoadsTreeAndWatchesRoot(t *testing.T) {
	h := newHarness(t)
	if len(h.watcher.paths) != 1 || h.watcher.paths[0] != h.root {
		t.Fatalf("expected the root to be watched, got %v", h.watcher.paths)
	}
	if _, ok := h.session.Model().Lookup(filepath.Join(h.root, "Cargo.toml")); !ok {
		t.Fatalf("tree misses Cargo.toml")
	}
	recent, err := h.history.Recent(5)
	if err != nil || len(recent) != 1 || recent[0].Path != h.root {
		t.Fatalf("expected workspace in history, got %v %v", recent, err)
	}
}

func TestBuildCollectsIssuesAndRecordsRun(t *testing.T) {
	h := newHarness(t)
	if err := h.session.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := h.proc(0)
	if len(p.args) != 1 || p.args[0] != "build" {
		t.Fatalf("unexpected args %v", p.args)
	}
	p.onLine("error[E0308]: mismatched types")
	p.onLine("  --> src/main.rs:4:5")
	p.onLine("error: could not compile `demo`")
	p.exit(101)
	h.loop.Drain()

	got := h.session.Issues().Issues()
	if len(got) != 1 || got[0].Origin != filepath.Join(h.root, "src", "main.rs") || got[0].Range.Line != 4 {
		t.Fatalf("unexpected issues %+v", got)
	}
	cmd := h.session.Queue().Current()
	if cmd != nil {
		t.Fatalf("queue should be idle, running %v", cmd)
	}
	runs, err := h.history.Runs(h.root, 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %v %v", runs, err)
	}
	if runs[0].Status != string(command.Failed) || runs[0].ExitCode == nil || *runs[0].ExitCode != 101 {
		t.Fatalf("unexpected run %+v", runs[0])
	}
}

func TestRunSkipsDebuggerWhenBuildFails(t *testing.T) {
	h := newHarness(t)
	if err := h.session.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.proc(0).exit(1)
	h.loop.Drain()
	if len(h.debugger.initiated) != 0 {
		t.Fatalf("debugger started after failed build")
	}
	var cancelled int
	for _, ev := range h.events {
		if qe, ok := ev.(QueueEvent); ok {
			if sc, ok := qe.Event.(command.StatusChanged); ok && sc.To == command.Cancelled {
				cancelled++
			}
		}
	}
	if cancelled != 1 {
		t.Fatalf("expected the debug launch to be cancelled, got %d cancellations", cancelled)
	}
}

func TestRunLaunchesDebuggerAfterBuild(t *testing.T) {
	h := newHarness(t)
	if err := h.session.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.proc(0).exit(0)
	h.loop.Drain()
	want := filepath.Join(h.root, "target", "debug", "demo")
	if len(h.debugger.initiated) != 1 || h.debugger.initiated[0] != want {
		t.Fatalf("unexpected debugger launch %v", h.debugger.initiated)
	}
	h.debugger.ready(nil)
	h.loop.Drain()
	if h.session.Queue().Busy() {
		t.Fatalf("queue should be idle once the debugger is ready")
	}
}

func TestRebuildCancelsRunningBuildFirst(t *testing.T) {
	h := newHarness(t)
	_ = h.session.Build()
	first := h.proc(0)
	_ = h.session.Build()
	if first.terminated != 1 {
		t.Fatalf("running build not asked to stop")
	}
	if len(h.runner.procs) != 1 {
		t.Fatalf("second build started before the first exited")
	}
	first.exit(130)
	h.loop.Drain()
	if len(h.runner.procs) != 2 {
		t.Fatalf("second build did not start after teardown")
	}
	if h.runner.maxLive != 1 {
		t.Fatalf("processes overlapped: %d live at once", h.runner.maxLive)
	}
}

func TestRunnable(t *testing.T) {
	h := newHarness(t)
	ops := h.session.Runnable()
	if !ops[OpBuild] || !ops[OpRun] || !ops[OpClean] || ops[OpStop] {
		t.Fatalf("unexpected idle set %v", ops)
	}
	_ = h.session.Clean()
	if !h.session.Runnable()[OpStop] {
		t.Fatalf("stop should be available while cleaning")
	}
	if err := h.session.Trigger(OpStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	h.proc(0).exit(130)
	h.loop.Drain()
	if h.session.Runnable()[OpStop] {
		t.Fatalf("stop still available after teardown")
	}
}

func TestWatcherBatchIsReconciledOnControlContext(t *testing.T) {
	h := newHarness(t)
	model := h.session.Model()
	before := len(model.Children(model.Root().ID))

	created := filepath.Join(h.root, "README.md")
	if err := os.WriteFile(created, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	done := make(chan struct{})
	go func() {
		h.watcher.onEvents([]fsevent.Event{fsevent.NewEvent(created, fsevent.FlagCreated|fsevent.FlagIsFile)})
		close(done)
	}()
	<-done
	if n := h.loop.Drain(); n != 1 {
		t.Fatalf("expected one posted batch, drained %d", n)
	}
	if after := len(model.Children(model.Root().ID)); after != before+1 {
		t.Fatalf("expected %d children, got %d", before+1, after)
	}
}

func TestRootDisappearanceClosesSession(t *testing.T) {
	h := newHarness(t)
	if err := os.RemoveAll(h.root); err != nil {
		t.Fatalf("remove: %v", err)
	}
	h.watcher.onEvents([]fsevent.Event{
		fsevent.NewEvent(h.root, fsevent.FlagRemoved|fsevent.FlagIsDir),
		fsevent.NewEvent(filepath.Join(h.root, "src"), fsevent.FlagRemoved|fsevent.FlagIsDir),
	})
	h.loop.Drain()

	if !h.session.Closed() {
		t.Fatalf("session still open")
	}
	if h.watcher.sub.unsubscribed != 1 {
		t.Fatalf("watcher not unsubscribed")
	}
	closed := h.closedEvents()
	if len(closed) != 1 {
		t.Fatalf("expected one Closed event, got %d", len(closed))
	}
	var gone *workspace.RootDisappearedError
	if !errors.As(closed[0].Err, &gone) {
		t.Fatalf("unexpected close error %v", closed[0].Err)
	}
	if err := h.session.Build(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Build on closed session: %v", err)
	}
}

func TestCloseWritesSidecarAndStopsWork(t *testing.T) {
	h := newHarness(t)
	src, ok := h.session.Model().Lookup(filepath.Join(h.root, "src"))
	if !ok {
		t.Fatalf("src not found")
	}
	if err := h.session.Model().SetExpanded(src.ID, true); err != nil {
		t.Fatalf("SetExpanded: %v", err)
	}
	_ = h.session.Build()
	if err := h.session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.proc(0).terminated != 1 {
		t.Fatalf("running build not stopped on close")
	}
	if h.watcher.sub.unsubscribed != 1 {
		t.Fatalf("watcher not unsubscribed")
	}
	snap, err := workspace.YAMLStore{}.Read(h.root)
	if err != nil || snap == nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if !snap.Expanded()["src"] {
		t.Fatalf("expansion not persisted: %+v", snap.Entries)
	}
	if err := h.session.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(h.closedEvents()) != 1 {
		t.Fatalf("Close must fire once")
	}
}

func TestDebuggerSessionsEndOnRerunStopAndClose(t *testing.T) {
	h := newHarness(t)
	launch := func() {
		t.Helper()
		if err := h.session.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		h.proc(len(h.runner.procs) - 1).exit(0)
		h.loop.Drain()
		h.debugger.ready(nil)
		h.loop.Drain()
	}

	launch()
	first := h.debugger.sessions[0]
	if first.terminated != 0 {
		t.Fatalf("ready debugger terminated early")
	}
	if !h.session.Runnable()[OpStop] {
		t.Fatalf("stop should be available while a debugger runs")
	}

	launch()
	if len(h.debugger.sessions) != 2 || first.terminated == 0 {
		t.Fatalf("rerun left the previous debugger running")
	}
	second := h.debugger.sessions[1]
	if err := h.session.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if second.terminated == 0 {
		t.Fatalf("stop left the debugger running")
	}
	if h.session.Runnable()[OpStop] {
		t.Fatalf("stop should be unavailable once everything ended")
	}

	launch()
	third := h.debugger.sessions[2]
	if err := h.session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if third.terminated == 0 {
		t.Fatalf("close left the debugger running")
	}
}
