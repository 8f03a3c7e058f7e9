package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestDrainRunsInPostOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if n := l.Drain(); n != 5 {
		t.Fatalf("expected 5 functions to run, got %d", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected post order, got %v", got)
		}
	}
}

func TestDrainIncludesNestedPosts(t *testing.T) {
	l := NewLoop()
	var got []string
	l.Post(func() {
		got = append(got, "outer")
		l.Post(func() { got = append(got, "inner") })
	})
	l.Drain()
	if len(got) != 2 || got[1] != "inner" {
		t.Fatalf("expected nested post to run in the same drain, got %v", got)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty loop after drain")
	}
}

func TestRunUntilStopsWhenDone(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { count++ })
		}()
	}
	if err := l.RunUntil(ctx, func() bool { return count == 10 }); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	wg.Wait()
	if count != 10 {
		t.Fatalf("expected 10 increments, got %d", count)
	}
}

func TestRunReturnsContextError(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPosterFuncIgnoresNil(t *testing.T) {
	var called bool
	p := PosterFunc(func(fn func()) { called = true; fn() })
	p.Post(nil)
	if called {
		t.Fatalf("nil work must not be forwarded")
	}
}

func TestWakeSignalsAfterPost(t *testing.T) {
	l := NewLoop()
	go l.Post(func() {})
	select {
	case <-l.Wake():
	case <-time.After(time.Second):
		t.Fatalf("no wake after post")
	}
	if n := l.Drain(); n != 1 {
		t.Fatalf("expected one drained function, got %d", n)
	}
}
