// Package process runs external tools on a pseudo-terminal so build tools keep
// their interactive line-buffered output, and streams that output line by line.
package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bekirdag/workbench/internal/command"
)

// maxLineBytes bounds a single output line.
const maxLineBytes = 1024 * 1024

// DefaultGrace is how long a terminated process gets before it is killed.
const DefaultGrace = 2 * time.Second

// PTYRunner implements command.ProcessRunner on top of creack/pty.
type PTYRunner struct {
	Env    []string
	Grace  time.Duration
	Logger *zap.Logger
}

// NewPTYRunner returns a runner that adds env to the inherited environment.
func NewPTYRunner(logger *zap.Logger, env ...string) *PTYRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PTYRunner{Env: env, Grace: DefaultGrace, Logger: logger}
}

func (r *PTYRunner) Run(exe string, args []string, dir string, onLine func(string), onExit func(int)) (command.ProcessHandle, error) {
	cmd := exec.Command(exe, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(r.Env) > 0 {
		env := append([]string{}, os.Environ()...)
		env = append(env, r.Env...)
		cmd.Env = env
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	h := &handle{cmd: cmd, grace: r.grace(), done: make(chan struct{})}
	logger := r.logger().With(zap.String("exe", exe), zap.Int("pid", cmd.Process.Pid))
	logger.Debug("process started", zap.Strings("args", args), zap.String("dir", dir))

	go func() {
		defer ptmx.Close()

		// Output and exit are collected concurrently; onExit only fires once
		// every line has been delivered.
		var (
			g       errgroup.Group
			waitErr error
		)
		g.Go(func() error { return pump(ptmx, onLine) })
		g.Go(func() error {
			waitErr = cmd.Wait()
			return nil
		})
		if err := g.Wait(); err != nil {
			logger.Warn("process output truncated", zap.Error(err))
		}

		code := exitCode(waitErr)
		close(h.done)
		logger.Debug("process exited", zap.Int("code", code))
		if onExit != nil {
			onExit(code)
		}
	}()
	return h, nil
}

// pump forwards lines until the pty closes. A read failure other than the
// pty hang-up is returned after the rest of the output is discarded, so the
// child never blocks on a full terminal buffer.
func pump(ptmx io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(ptmx)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if onLine != nil {
			onLine(strings.TrimRight(scanner.Text(), "\r"))
		}
	}
	err := scanner.Err()
	if err == nil || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	_, _ = io.Copy(io.Discard, ptmx)
	return fmt.Errorf("read output: %w", err)
}

func (r *PTYRunner) grace() time.Duration {
	if r.Grace > 0 {
		return r.Grace
	}
	return DefaultGrace
}

func (r *PTYRunner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

type handle struct {
	cmd   *exec.Cmd
	grace time.Duration
	done  chan struct{}
	once  sync.Once
}

// Terminate interrupts the process and kills it if it is still alive after
// the grace period.
func (h *handle) Terminate() error {
	var err error
	h.once.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		if sigErr := h.cmd.Process.Signal(os.Interrupt); sigErr != nil && !errors.Is(sigErr, os.ErrProcessDone) {
			err = sigErr
		}
		go func() {
			select {
			case <-h.done:
			case <-time.After(h.grace):
				_ = h.cmd.Process.Kill()
			}
		}()
	})
	return err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
