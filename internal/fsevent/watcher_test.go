package fsevent

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSubscribeDeliversBatch(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(WithLatency(50 * time.Millisecond))

	batches := make(chan []Event, 8)
	sub, err := w.Subscribe([]string{root}, func(events []Event) { batches <- events })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	target := filepath.Join(root, "a.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, ev := range batch {
				if ev.Path == target && ev.Op == Create {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no create event for %s", target)
		}
	}
}

func TestSubscribeIgnoresHiddenEntries(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(WithLatency(30 * time.Millisecond))

	batches := make(chan []Event, 8)
	sub, err := w.Subscribe([]string{root}, func(events []Event) { batches <- events })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := os.WriteFile(filepath.Join(root, ".hidden"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "shown"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case batch := <-batches:
		for _, ev := range batch {
			if filepath.Base(ev.Path) == ".hidden" {
				t.Fatalf("hidden entry delivered: %+v", ev)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no batch delivered")
	}
}

func TestSubscribeMissingRoot(t *testing.T) {
	w := NewWatcher()
	if _, err := w.Subscribe([]string{filepath.Join(t.TempDir(), "missing")}, func([]Event) {}); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(WithLatency(20 * time.Millisecond))
	delivered := make(chan struct{}, 1)
	sub, err := w.Subscribe([]string{root}, func([]Event) {
		select {
		case delivered <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sub.Unsubscribe()
	sub.Unsubscribe()

	_ = os.WriteFile(filepath.Join(root, "late"), nil, 0o644)
	select {
	case <-delivered:
		t.Fatalf("batch delivered after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeReportsHiddenRootRemoval(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".workspace")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w := NewWatcher(WithLatency(30 * time.Millisecond))

	batches := make(chan []Event, 8)
	sub, err := w.Subscribe([]string{root}, func(events []Event) { batches <- events })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := os.Remove(root); err != nil {
		t.Fatalf("remove: %v", err)
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, ev := range batch {
				if ev.Path == root {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no event for the removed root %s", root)
		}
	}
}
