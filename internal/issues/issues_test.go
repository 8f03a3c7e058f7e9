package issues

import (
	"path/filepath"
	"testing"
)

const cargoOutput = "   Compiling demo v0.1.0 (/w/demo)\n" +
	"\x1b[0m\x1b[1m\x1b[38;5;9merror[E0425]\x1b[0m\x1b[1m: cannot find value `x` in this scope\x1b[0m\n" +
	" --> src/main.rs:2:5\n" +
	"  |\n" +
	"2 |     x\n" +
	"warning: unused variable: `y`\n" +
	"  --> src/lib.rs:10:9\n" +
	"warning: `demo` (bin \"demo\") generated 1 warning\n" +
	"error: could not compile `demo` due to previous error\n" +
	"note: run with `RUST_BACKTRACE=1`\n"

func feed(c *Collector, text string) {
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			c.Consume(text[start:i])
			start = i + 1
		}
	}
	c.Flush()
}

func TestCollectorParsesCargoOutput(t *testing.T) {
	c := NewCollector("/w/demo")
	feed(c, cargoOutput)

	got := c.Issues()
	if len(got) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(got), got)
	}
	want := []Issue{
		{Origin: filepath.Join("/w/demo", "src/main.rs"), Range: Range{2, 5}, Severity: SeverityError, Code: "E0425", Message: "cannot find value `x` in this scope"},
		{Origin: filepath.Join("/w/demo", "src/lib.rs"), Range: Range{10, 9}, Severity: SeverityWarning, Message: "unused variable: `y`"},
		{Severity: SeverityNote, Message: "run with `RUST_BACKTRACE=1`"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("issue %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if c.Count(SeverityError) != 1 || c.Count(SeverityWarning) != 1 {
		t.Fatalf("unexpected counts")
	}
}

func TestCollectorResetNotifies(t *testing.T) {
	changes := 0
	c := NewCollector("")
	c.OnChange = func() { changes++ }
	c.Consume("error: boom")
	c.Consume(" --> /abs/file.rs:1:1")
	if changes != 1 || c.Issues()[0].Origin != "/abs/file.rs" {
		t.Fatalf("unexpected state %v after %d changes", c.Issues(), changes)
	}
	c.Reset()
	if len(c.Issues()) != 0 || changes != 2 {
		t.Fatalf("reset did not clear or notify")
	}
}

func TestIssueString(t *testing.T) {
	i := Issue{Origin: "a.rs", Range: Range{3, 4}, Severity: SeverityError, Code: "E1", Message: "bad"}
	if got := i.String(); got != "a.rs:3:4: error[E1]: bad" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := (Issue{Severity: SeverityNote, Message: "hi"}).String(); got != "<unknown>: note: hi" {
		t.Fatalf("unexpected string %q", got)
	}
}
