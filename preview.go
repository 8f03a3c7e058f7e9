package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	maxPreviewBytes = 8192
	maxPreviewLines = 200
	maxPreviewDir   = 12
)

// previewPath renders the start of a file, or a folder's README or listing.
// Markdown goes through glamour.
func previewPath(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("%s\n\n(unavailable: %v)", path, err)
	}
	if info.IsDir() {
		if readme := firstExisting(path, "README.md", "README", "readme.md", "readme.txt"); readme != "" {
			return previewPath(readme)
		}
		entries, _ := os.ReadDir(path)
		var lines []string
		for i, entry := range entries {
			if i == maxPreviewDir {
				lines = append(lines, fmt.Sprintf("… %d more", len(entries)-maxPreviewDir))
				break
			}
			marker := ""
			if entry.IsDir() {
				marker = "/"
			}
			lines = append(lines, entry.Name()+marker)
		}
		return fmt.Sprintf("%s/\n%s", path, strings.Join(lines, "\n"))
	}
	data, truncated, err := readFileLimited(path, maxPreviewBytes)
	if err != nil {
		return fmt.Sprintf("%s\n\n(unreadable: %v)", path, err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return fmt.Sprintf("%s\n\n(binary file, %d bytes)", path, info.Size())
	}
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) > maxPreviewLines {
		lines = lines[:maxPreviewLines]
		truncated = true
	}
	text = strings.Join(lines, "\n")
	if isMarkdown(path) {
		text = RenderMarkdown(text)
	}
	if truncated {
		text += "\n…"
	}
	return text
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func firstExisting(dir string, names ...string) string {
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func readFileLimited(path string, maxBytes int) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	buf := make([]byte, maxBytes+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, false, err
	}
	if n > maxBytes {
		return trimPartialRune(buf[:maxBytes]), true, nil
	}
	return buf[:n], false, nil
}

// trimPartialRune drops a multi-byte character cut off at the end of data.
func trimPartialRune(data []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(data) > 0; i++ {
		r, size := utf8.DecodeLastRune(data)
		if r != utf8.RuneError || size != 1 {
			break
		}
		data = data[:len(data)-1]
	}
	return data
}
