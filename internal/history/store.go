// Package history records opened workspaces and command runs in sqlite.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bekirdag/workbench/internal/command"
)

// Workspace is a recently opened workspace root.
type Workspace struct {
	Path     string
	Label    string
	OpenedAt time.Time
}

// Run is one finished or in-flight command.
type Run struct {
	ID        string
	Workspace string
	Kind      string
	Status    string
	ExitCode  *int
	Error     string
	QueuedAt  time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

// RunFromCommand captures the current state of cmd.
func RunFromCommand(workspace string, cmd *command.Command) Run {
	run := Run{
		ID:        cmd.ID,
		Workspace: workspace,
		Kind:      string(cmd.Kind),
		Status:    string(cmd.Status),
		QueuedAt:  cmd.QueuedAt,
		StartedAt: cmd.StartedAt,
		EndedAt:   cmd.EndedAt,
	}
	if cmd.ExitCode != nil {
		code := *cmd.ExitCode
		run.ExitCode = &code
	}
	if cmd.Err != nil {
		run.Error = cmd.Err.Error()
	}
	return run
}

// Store is the sqlite-backed history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	sqlitePath := filepath.Join(dir, "history.sqlite")
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: sqlitePath}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS workspaces (
			path TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			opened_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workspace TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			exit_code INTEGER,
			error TEXT NOT NULL DEFAULT '',
			queued_at TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL DEFAULT '',
			ended_at TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS runs_workspace ON runs (workspace, queued_at);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("history store migration failed: %w", err)
		}
	}
	return nil
}

// Path is the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Touch records that path was opened now.
func (s *Store) Touch(path string) error {
	if s == nil || s.db == nil {
		return nil
	}
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "" || clean == "." {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO workspaces (path, label, opened_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET label = excluded.label, opened_at = excluded.opened_at`,
		clean, filepath.Base(clean), formatTime(time.Now()))
	return err
}

// Recent lists workspaces, most recently opened first.
func (s *Store) Recent(limit int) ([]Workspace, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT path, COALESCE(NULLIF(label, ''), path), opened_at
		FROM workspaces ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var (
			ws     Workspace
			opened string
		)
		if err := rows.Scan(&ws.Path, &ws.Label, &opened); err != nil {
			return nil, err
		}
		ws.OpenedAt = parseTime(opened)
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Remove forgets a workspace and its runs.
func (s *Store) Remove(path string) error {
	return s.RemoveAll([]string{path})
}

// RemoveAll forgets several workspaces in one transaction.
func (s *Store) RemoveAll(paths []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range []string{
		`DELETE FROM workspaces WHERE path = ?`,
		`DELETE FROM runs WHERE workspace = ?`,
	} {
		prepared, err := tx.Prepare(stmt)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, path := range paths {
			clean := filepath.Clean(strings.TrimSpace(path))
			if clean == "" {
				continue
			}
			if _, err := prepared.Exec(clean); err != nil {
				prepared.Close()
				_ = tx.Rollback()
				return err
			}
		}
		prepared.Close()
	}
	return tx.Commit()
}

// RecordRun inserts or updates a run by id.
func (s *Store) RecordRun(run Run) error {
	if s == nil || s.db == nil {
		return nil
	}
	var code sql.NullInt64
	if run.ExitCode != nil {
		code = sql.NullInt64{Int64: int64(*run.ExitCode), Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO runs (id, workspace, kind, status, exit_code, error, queued_at, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, exit_code = excluded.exit_code,
			error = excluded.error, started_at = excluded.started_at, ended_at = excluded.ended_at`,
		run.ID, filepath.Clean(run.Workspace), run.Kind, run.Status, code, run.Error,
		formatTime(run.QueuedAt), formatTime(run.StartedAt), formatTime(run.EndedAt))
	return err
}

// Runs lists the latest runs of a workspace, newest first.
func (s *Store) Runs(workspace string, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, workspace, kind, status, exit_code, error, queued_at, started_at, ended_at
		FROM runs WHERE workspace = ? ORDER BY queued_at DESC, rowid DESC LIMIT ?`, filepath.Clean(workspace), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run                      Run
			code                     sql.NullInt64
			queued, started, stopped string
		)
		if err := rows.Scan(&run.ID, &run.Workspace, &run.Kind, &run.Status, &code, &run.Error, &queued, &started, &stopped); err != nil {
			return nil, err
		}
		if code.Valid {
			c := int(code.Int64)
			run.ExitCode = &c
		}
		run.QueuedAt, run.StartedAt, run.EndedAt = parseTime(queued), parseTime(started), parseTime(stopped)
		out = append(out, run)
	}
	return out, rows.Err()
}

// timeLayout keeps every fraction digit so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
