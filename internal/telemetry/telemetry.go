// Package telemetry appends command run events to a JSONL file.
package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bekirdag/workbench/internal/command"
)

// FileName is the default telemetry file inside the settings directory.
const FileName = "runs.jsonl"

// Event is one line of the telemetry file.
type Event struct {
	SessionID  string            `json:"session_id"`
	UserID     string            `json:"user_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Event      string            `json:"event"`
	Workspace  string            `json:"workspace,omitempty"`
	CommandID  string            `json:"command_id,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Status     string            `json:"status,omitempty"`
	ExitCode   *int              `json:"exit_code,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Logger appends events to a file. A nil Logger drops everything.
type Logger struct {
	path      string
	sessionID string
	userID    string
	mu        sync.Mutex
}

// NewLogger returns a logger writing to path.
func NewLogger(path, sessionID, userID string) *Logger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if strings.TrimSpace(sessionID) == "" {
		sessionID = NewSessionID()
	}
	return &Logger{
		path:      path,
		sessionID: strings.TrimSpace(sessionID),
		userID:    strings.TrimSpace(userID),
	}
}

// Path is the file events are written to.
func (t *Logger) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Emit appends event, filling in the session, user and timestamp.
func (t *Logger) Emit(event Event) {
	if t == nil || strings.TrimSpace(event.Event) == "" {
		return
	}
	if event.SessionID == "" {
		event.SessionID = t.sessionID
	}
	if strings.TrimSpace(event.UserID) == "" {
		event.UserID = t.userID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(event.Extra) == 0 {
		event.Extra = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(data)
}

// CommandEvent describes a status change of a queued command.
func CommandEvent(workspace string, change command.StatusChanged) Event {
	cmd := change.Command
	ev := Event{
		Event:     "command_" + string(change.To),
		Workspace: workspace,
		CommandID: cmd.ID,
		Kind:      string(cmd.Kind),
		Status:    string(change.To),
	}
	if change.To.Terminal() {
		ev.DurationMS = cmd.Duration().Milliseconds()
	}
	if cmd.ExitCode != nil {
		code := *cmd.ExitCode
		ev.ExitCode = &code
	}
	if cmd.Err != nil {
		ev.Error = cmd.Err.Error()
	}
	return ev
}

// Read loads every well-formed event from path. Malformed lines are skipped
// and counted.
func Read(path string) ([]Event, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	var (
		events  []Event
		skipped int
		scanner = bufio.NewScanner(file)
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, scanner.Err()
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ResolveUserID picks a user name from the environment.
func ResolveUserID() string {
	candidates := []string{
		os.Getenv("WORKBENCH_USER_ID"),
		os.Getenv("USER"),
		os.Getenv("USERNAME"),
	}
	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
