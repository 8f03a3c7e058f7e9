package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/issues"
)

const maxJobHistory = 12

// trackJob adds cmd to the job list, dropping the oldest finished entries.
func (m *model) trackJob(cmd *command.Command) {
	m.jobs = append(m.jobs, cmd)
	if len(m.jobs) <= maxJobHistory {
		return
	}
	kept := m.jobs[:0]
	excess := len(m.jobs) - maxJobHistory
	for _, job := range m.jobs {
		if excess > 0 && job.Status.Terminal() {
			excess--
			continue
		}
		kept = append(kept, job)
	}
	m.jobs = kept
}

func jobStatusIcon(status command.Status) string {
	switch status {
	case command.Running:
		return "▶"
	case command.Pending:
		return "…"
	case command.Succeeded:
		return "✓"
	case command.Failed:
		return "✗"
	case command.Cancelled:
		return "⚑"
	default:
		return "•"
	}
}

func jobLabel(cmd *command.Command) string {
	switch cmd.Kind {
	case command.KindBuild:
		return "Build"
	case command.KindClean:
		return "Clean"
	case command.KindDebugLaunch:
		return "Debug"
	}
	return string(cmd.Kind)
}

func (m *model) renderJobQueue() string {
	header := "Jobs (ctrl+k stop)"
	if m.session != nil && m.session.Queue().Busy() {
		header = m.spinner.View() + " " + header
	}
	if len(m.jobs) == 0 {
		return header + "\n  (no jobs)"
	}
	lines := []string{header}
	for i := len(m.jobs) - 1; i >= 0; i-- {
		job := m.jobs[i]
		detail := string(job.Status)
		switch job.Status {
		case command.Running:
			if !job.StartedAt.IsZero() {
				detail = fmt.Sprintf("running for %s", formatElapsed(time.Since(job.StartedAt)))
			}
		case command.Succeeded, command.Cancelled:
			if !job.EndedAt.IsZero() {
				detail = fmt.Sprintf("%s in %s, %s", job.Status, formatElapsed(job.Duration()), formatRelativeTime(job.EndedAt))
			}
		case command.Failed:
			if job.Err != nil {
				detail = fmt.Sprintf("failed: %v", job.Err)
			}
		}
		line := fmt.Sprintf("%s %s  %s", jobStatusIcon(job.Status), jobLabel(job), detail)
		switch job.Status {
		case command.Succeeded:
			line = m.styles.success.Render(line)
		case command.Failed:
			line = m.styles.danger.Render(line)
		case command.Cancelled, command.Pending:
			line = m.styles.muted.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderIssues(height int) string {
	errs := 0
	warns := 0
	for _, issue := range m.issues {
		switch issue.Severity {
		case issues.SeverityError:
			errs++
		case issues.SeverityWarning:
			warns++
		}
	}
	header := fmt.Sprintf("Issues: %d error(s), %d warning(s)", errs, warns)
	if len(m.issues) == 0 {
		return header + "\n  (none)"
	}
	if height < 2 {
		height = 2
	}
	start := 0
	if m.issueIndex >= height-1 {
		start = m.issueIndex - (height - 2)
	}
	lines := []string{header}
	for i := start; i < len(m.issues) && len(lines) < height; i++ {
		issue := m.issues[i]
		origin := issue.Origin
		if m.session != nil {
			if rel, err := filepath.Rel(m.session.Root(), origin); err == nil && !strings.HasPrefix(rel, "..") {
				origin = rel
			}
		}
		text := fmt.Sprintf("%s:%d:%d %s", origin, issue.Range.Line, issue.Range.Column, issue.Message)
		if issue.Code != "" {
			text = fmt.Sprintf("%s:%d:%d [%s] %s", origin, issue.Range.Line, issue.Range.Column, issue.Code, issue.Message)
		}
		style := m.styles.warning
		if issue.Severity == issues.SeverityError {
			style = m.styles.danger
		}
		prefix := "  "
		if i == m.issueIndex && m.focus == paneIssues {
			prefix = "> "
		}
		lines = append(lines, prefix+style.Render(text))
	}
	return strings.Join(lines, "\n")
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return "<1s"
	}
	totalSeconds := int(d / time.Second)
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%02ds", totalMinutes, totalSeconds%60)
	}
	return fmt.Sprintf("%dh%02dm", totalMinutes/60, totalMinutes%60)
}

func formatRelativeTime(ts time.Time) string {
	if ts.IsZero() {
		return "N/A"
	}
	delta := time.Since(ts)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	}
	return ts.Format("2006-01-02")
}
