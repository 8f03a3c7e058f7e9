package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/debugger"
	"github.com/bekirdag/workbench/internal/dispatch"
	"github.com/bekirdag/workbench/internal/fsevent"
	"github.com/bekirdag/workbench/internal/history"
	"github.com/bekirdag/workbench/internal/logging"
	"github.com/bekirdag/workbench/internal/process"
	"github.com/bekirdag/workbench/internal/session"
	"github.com/bekirdag/workbench/internal/settings"
	"github.com/bekirdag/workbench/internal/telemetry"
)

func main() {
	configDir := flag.String("config-dir", settings.Dir(), "Directory holding settings, history and logs")
	theme := flag.String("theme", "", "Help rendering theme: auto, light, or dark")
	logLevel := flag.String("log-level", "", "Log level override: debug, info, warn, error")
	latency := flag.Duration("latency", 0, "Filesystem event coalescing window")
	flag.Parse()

	if err := run(*configDir, flag.Arg(0), *theme, *logLevel, *latency); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, root, theme, logLevel string, latency time.Duration) error {
	cfg, cfgPath, err := settings.Load(configDir)
	if err != nil {
		return err
	}
	if theme != "" {
		cfg.Theme = theme
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if latency > 0 {
		cfg.WatchLatency = latency
	}
	setMarkdownTheme(markdownThemeFromString(cfg.Theme))

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: filepath.Join(configDir, "workbench.log"),
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	logger := logging.L()

	store, err := history.Open(configDir)
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
	}
	defer store.Close()

	if root == "" {
		root = defaultRoot(store)
	}

	tool, err := cfg.Tool()
	if err != nil {
		return fmt.Errorf("%s: %w", cfgPath, err)
	}
	dbgExe, dbgArgs, err := cfg.DebuggerArgs()
	if err != nil {
		return fmt.Errorf("%s: debugger: %w", cfgPath, err)
	}

	loop := dispatch.NewLoop()
	tel := telemetry.NewLogger(filepath.Join(configDir, telemetry.FileName), "", telemetry.ResolveUserID())
	m := newModel(loop, tel, logger, markdownThemeFromString(cfg.Theme))

	runner := process.NewPTYRunner(logger)
	dbg := debugger.NewProcess(runner, logger)
	dbg.Executable = dbgExe
	dbg.Args = dbgArgs
	dbg.Output = func(line string) {
		loop.Post(func() { m.appendOutput(line) })
	}

	watcher := fsevent.NewWatcher(
		fsevent.WithLatency(cfg.WatchLatency),
		fsevent.WithLogger(logger),
	)

	s, err := session.Open(root, session.Deps{
		Poster:          loop,
		Watcher:         watcher,
		Runner:          runner,
		Debugger:        dbg,
		Tool:            tool,
		History:         store,
		Logger:          logger,
		TeardownTimeout: cfg.TeardownTimeout,
		OnEvent:         m.handleSessionEvent,
	})
	if err != nil {
		return err
	}
	m.attach(s)

	_, err = tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	).Run()
	if !s.Closed() {
		_ = s.Close()
	}
	return err
}

// defaultRoot reopens the most recent workspace, falling back to the current
// directory.
func defaultRoot(store *history.Store) string {
	recent, err := store.Recent(1)
	if err == nil && len(recent) > 0 {
		if info, err := os.Stat(recent[0].Path); err == nil && info.IsDir() {
			return recent[0].Path
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
