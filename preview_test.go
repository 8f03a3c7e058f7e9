package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreviewPath(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "main.rs")
	if err := os.WriteFile(text, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bin := filepath.Join(dir, "demo")
	if err := os.WriteFile(bin, []byte{0x7f, 'E', 'L', 'F', 0, 1}, 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, []byte(strings.Repeat("x\n", maxPreviewLines+10)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := previewPath(text); !strings.Contains(got, "fn main") {
		t.Fatalf("unexpected text preview %q", got)
	}
	if got := previewPath(bin); !strings.Contains(got, "binary file, 6 bytes") {
		t.Fatalf("unexpected binary preview %q", got)
	}
	if got := previewPath(big); !strings.HasSuffix(got, "…") {
		t.Fatalf("long file not marked as truncated")
	}
	if got := previewPath(dir); !strings.Contains(got, "main.rs") {
		t.Fatalf("folder listing misses entries: %q", got)
	}
	if got := previewPath(filepath.Join(dir, "missing")); !strings.Contains(got, "unavailable") {
		t.Fatalf("missing file not reported: %q", got)
	}
}

func TestMarkdownThemeCycle(t *testing.T) {
	if got := markdownThemeFromString(" Dark "); got != markdownThemeDark {
		t.Fatalf("parse: got %q", got)
	}
	if got := markdownThemeFromString("solarized"); got != markdownThemeAuto {
		t.Fatalf("unknown theme should fall back to auto, got %q", got)
	}
	theme := markdownThemeAuto
	for i := 0; i < len(markdownThemes); i++ {
		theme = nextMarkdownTheme(theme)
	}
	if theme != markdownThemeAuto {
		t.Fatalf("cycle did not return to auto: %q", theme)
	}
}

func TestReadFileLimitedKeepsWholeRunes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	// "aé" is three bytes; a limit of two cuts the é in half.
	if err := os.WriteFile(path, []byte("aéz"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, truncated, err := readFileLimited(path, 2)
	if err != nil || !truncated {
		t.Fatalf("unexpected result %q %v %v", data, truncated, err)
	}
	if string(data) != "a" {
		t.Fatalf("partial rune kept: %q", data)
	}
	data, _, _ = readFileLimited(path, 3)
	if string(data) != "aé" {
		t.Fatalf("whole rune dropped: %q", data)
	}
}
