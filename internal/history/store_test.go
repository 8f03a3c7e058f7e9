package history

import (
	"errors"
	"testing"
	"time"

	"github.com/bekirdag/workbench/internal/command"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTouchAndRecent(t *testing.T) {
	s := openStore(t)
	if err := s.Touch("/w/alpha"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Touch("/w/beta/"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Path != "/w/beta" || got[0].Label != "beta" {
		t.Fatalf("unexpected recent list %+v", got)
	}
	if got[0].OpenedAt.IsZero() {
		t.Fatalf("opened time not recorded")
	}
}

func TestRecordRunUpserts(t *testing.T) {
	s := openStore(t)
	cmd := command.New(command.KindBuild, "/w/alpha", nil)
	cmd.QueuedAt = time.Now()
	if err := s.RecordRun(RunFromCommand("/w/alpha", cmd)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	code := 101
	cmd.Status = command.Failed
	cmd.ExitCode = &code
	cmd.Err = errors.New("process exited with code 101")
	cmd.StartedAt = time.Now()
	cmd.EndedAt = time.Now()
	if err := s.RecordRun(RunFromCommand("/w/alpha", cmd)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := s.Runs("/w/alpha", 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected the run to be updated in place, got %d rows", len(runs))
	}
	run := runs[0]
	if run.Status != "failed" || run.ExitCode == nil || *run.ExitCode != 101 || run.Error == "" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.EndedAt.IsZero() {
		t.Fatalf("end time not stored")
	}
}

func TestRemoveDropsRuns(t *testing.T) {
	s := openStore(t)
	_ = s.Touch("/w/alpha")
	cmd := command.New(command.KindClean, "/w/alpha", nil)
	if err := s.RecordRun(RunFromCommand("/w/alpha", cmd)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := s.Remove("/w/alpha"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	recent, _ := s.Recent(0)
	runs, _ := s.Runs("/w/alpha", 0)
	if len(recent) != 0 || len(runs) != 0 {
		t.Fatalf("expected nothing left, got %v %v", recent, runs)
	}
}

func TestNilStoreIsInert(t *testing.T) {
	var s *Store
	if err := s.Touch("/w"); err != nil {
		t.Fatalf("nil Touch: %v", err)
	}
	if runs, err := s.Runs("/w", 1); err != nil || runs != nil {
		t.Fatalf("nil Runs: %v %v", runs, err)
	}
}

func TestStoredTimesSortAsText(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	earlier := formatTime(base.Add(100 * time.Millisecond))
	later := formatTime(base.Add(120 * time.Millisecond))
	if !(earlier < later) {
		t.Fatalf("%q should sort before %q", earlier, later)
	}
	if whole := formatTime(base); !(whole < earlier) {
		t.Fatalf("%q should sort before %q", whole, earlier)
	}
	if got := parseTime(later); !got.Equal(base.Add(120 * time.Millisecond)) {
		t.Fatalf("round trip gave %v", got)
	}
}
