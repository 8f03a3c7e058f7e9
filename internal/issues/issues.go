// Package issues turns build tool output into diagnostic records.
package issues

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
	SeverityHelp    Severity = "help"
)

// Range is a 1-based position in a source file.
type Range struct {
	Line   int
	Column int
}

// Issue is one diagnostic produced by a build.
type Issue struct {
	Origin   string
	Range    Range
	Message  string
	Severity Severity
	Code     string
}

func (i Issue) String() string {
	loc := i.Origin
	if loc == "" {
		loc = "<unknown>"
	} else if i.Range.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", loc, i.Range.Line, i.Range.Column)
	}
	if i.Code != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", loc, i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, i.Severity, i.Message)
}

var (
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	headerPattern   = regexp.MustCompile(`^(error|warning|note|help)(?:\[([A-Za-z0-9]+)\])?: (.+)$`)
	locationPattern = regexp.MustCompile(`^\s*-->\s+(.+?):(\d+):(\d+)\s*$`)

	summaryPrefixes = []string{
		"could not compile",
		"aborting due to",
		"build failed",
	}
)

// Collector accumulates issues from streamed output. It is fed from the
// command queue's control context and is not safe for concurrent use.
type Collector struct {
	// Root resolves relative origins.
	Root string
	// OnChange is called after an issue is added or the set is reset.
	OnChange func()

	issues  []Issue
	pending *Issue
}

// NewCollector returns a collector resolving paths against root.
func NewCollector(root string) *Collector {
	return &Collector{Root: root}
}

// Consume feeds one output line.
func (c *Collector) Consume(line string) {
	line = strings.TrimRight(ansiPattern.ReplaceAllString(line, ""), "\r\n")
	if m := headerPattern.FindStringSubmatch(line); m != nil {
		c.Flush()
		if isSummary(m[3]) {
			return
		}
		c.pending = &Issue{Severity: Severity(m[1]), Code: m[2], Message: strings.TrimSpace(m[3])}
		return
	}
	if c.pending == nil {
		return
	}
	if m := locationPattern.FindStringSubmatch(line); m != nil {
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		c.pending.Origin = c.resolve(m[1])
		c.pending.Range = Range{Line: ln, Column: col}
		c.Flush()
	}
}

// Flush records a header still waiting for its location.
func (c *Collector) Flush() {
	if c.pending == nil {
		return
	}
	c.issues = append(c.issues, *c.pending)
	c.pending = nil
	if c.OnChange != nil {
		c.OnChange()
	}
}

// Reset forgets every issue.
func (c *Collector) Reset() {
	c.issues = nil
	c.pending = nil
	if c.OnChange != nil {
		c.OnChange()
	}
}

// Issues returns the collected issues in output order.
func (c *Collector) Issues() []Issue {
	return append([]Issue(nil), c.issues...)
}

// Count returns how many issues of severity were collected.
func (c *Collector) Count(severity Severity) int {
	n := 0
	for _, issue := range c.issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

func (c *Collector) resolve(origin string) string {
	if origin == "" || filepath.IsAbs(origin) || c.Root == "" {
		return origin
	}
	return filepath.Join(c.Root, origin)
}

func isSummary(message string) bool {
	lower := strings.ToLower(message)
	for _, prefix := range summaryPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return strings.HasPrefix(message, "`") && strings.Contains(message, "generated")
}
