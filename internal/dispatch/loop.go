// Package dispatch provides the single control context that owns all tree and
// queue state. Producers running on other goroutines hand work to it through a
// Poster and never touch that state directly.
package dispatch

import (
	"context"
	"sync"
)

// Poster accepts work to be run later on the control context.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(fn func())

// Post calls f(fn).
func (f PosterFunc) Post(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Loop is a serial executor: posted functions run one at a time, in post order,
// on whichever goroutine is driving Run or Drain.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. It never blocks and is safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs everything posted so far, including work posted by the functions
// it runs, and returns how many functions ran.
func (l *Loop) Drain() int {
	ran := 0
	for {
		fn := l.next()
		if fn == nil {
			return ran
		}
		fn()
		ran++
	}
}

// Run drives the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, nil)
}

// RunUntil drives the loop until done reports true or ctx is done. done is
// evaluated on the control context after every drained burst.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for {
		l.Drain()
		if done != nil && done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Wake returns a channel that receives after a Post. Hosts with their own
// event loop wait on it and then call Drain.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Len reports how many functions are waiting.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}
