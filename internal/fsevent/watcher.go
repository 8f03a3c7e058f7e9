package fsevent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultLatency is how long a subscription waits for the filesystem to settle
// before delivering a batch.
const DefaultLatency = 150 * time.Millisecond

// Subscription is returned by Subscribe. Callers must Unsubscribe when the
// workspace closes.
type Subscription interface {
	Unsubscribe()
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLatency sets the debounce window for batches.
func WithLatency(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.latency = d
		}
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithIgnore replaces the default ignore rule, which skips hidden entries.
func WithIgnore(fn func(path string) bool) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.ignore = fn
		}
	}
}

// Watcher subscribes to directory trees through fsnotify. Rapid changes are
// collected and delivered together once the tree has been quiet for the
// configured latency. Within a batch, events keep their arrival order.
type Watcher struct {
	latency time.Duration
	logger  *zap.Logger
	ignore  func(path string) bool
}

// NewWatcher returns a Watcher with the given options applied.
func NewWatcher(opts ...Option) *Watcher {
	w := &Watcher{
		latency: DefaultLatency,
		logger:  zap.NewNop(),
		ignore:  IsHidden,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsHidden reports whether the base name of path starts with a dot.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// Subscribe watches every directory below each path. onEvents is called from
// a watcher goroutine; callers hand the batch to their control context.
func (w *Watcher) Subscribe(paths []string, onEvents func([]Event)) (Subscription, error) {
	if onEvents == nil {
		return nil, errors.New("fsevent: nil event handler")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsevent: create watcher: %w", err)
	}
	s := &subscription{
		watcher:  w,
		fsw:      fsw,
		onEvents: onEvents,
		dirs:     make(map[string]struct{}),
		roots:    make(map[string]struct{}, len(paths)),
		done:     make(chan struct{}),
	}
	for _, path := range paths {
		s.roots[filepath.Clean(path)] = struct{}{}
	}
	for _, path := range paths {
		if err := s.addTree(filepath.Clean(path)); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	go s.loop()
	return s, nil
}

type subscription struct {
	watcher  *Watcher
	fsw      *fsnotify.Watcher
	onEvents func([]Event)
	// roots are the subscribed paths; they are never filtered out.
	roots map[string]struct{}

	mu      sync.Mutex
	dirs    map[string]struct{}
	pending []Event
	timer   *time.Timer
	stopped bool

	done chan struct{}
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		if s.timer != nil {
			s.timer.Stop()
		}
		s.pending = nil
		s.mu.Unlock()
		close(s.done)
		_ = s.fsw.Close()
	})
}

func (s *subscription) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("fsevent: watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.watcher.ignore(path) {
			return filepath.SkipDir
		}
		if err := s.fsw.Add(path); err != nil {
			if path == root {
				return fmt.Errorf("fsevent: watch %s: %w", root, err)
			}
			s.watcher.logger.Debug("watch directory failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		s.mu.Lock()
		s.dirs[path] = struct{}{}
		s.mu.Unlock()
		return nil
	})
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			s.watcher.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (s *subscription) handle(raw fsnotify.Event) {
	path := filepath.Clean(raw.Name)
	if _, root := s.roots[path]; !root && s.watcher.ignore(path) {
		return
	}

	s.mu.Lock()
	_, knownDir := s.dirs[path]
	s.mu.Unlock()

	isDir := knownDir
	if raw.Op.Has(fsnotify.Create) || raw.Op.Has(fsnotify.Write) {
		if info, err := os.Lstat(path); err == nil {
			isDir = info.IsDir()
		}
	}
	if raw.Op.Has(fsnotify.Create) && isDir && !knownDir {
		if err := s.addTree(path); err != nil {
			s.watcher.logger.Debug("watch new directory failed", zap.String("path", path), zap.Error(err))
		}
	}
	if knownDir && (raw.Op.Has(fsnotify.Remove) || raw.Op.Has(fsnotify.Rename)) {
		s.mu.Lock()
		delete(s.dirs, path)
		s.mu.Unlock()
	}

	s.enqueue(NewEvent(path, translate(raw.Op, isDir)))
}

func (s *subscription) enqueue(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = append(s.pending, ev)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.watcher.latency, s.flush)
}

func (s *subscription) flush() {
	s.mu.Lock()
	if s.stopped || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.onEvents(batch)
}

func translate(op fsnotify.Op, isDir bool) Flag {
	var f Flag
	if op.Has(fsnotify.Create) {
		f |= FlagCreated
	}
	if op.Has(fsnotify.Remove) {
		f |= FlagRemoved
	}
	if op.Has(fsnotify.Rename) {
		f |= FlagRenamed
	}
	if op.Has(fsnotify.Write) {
		f |= FlagModified
	}
	if op.Has(fsnotify.Chmod) {
		f |= FlagInodeMetaMod
	}
	if isDir {
		f |= FlagIsDir
	} else {
		f |= FlagIsFile
	}
	return f
}
