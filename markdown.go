package main

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

type markdownTheme string

const (
	markdownThemeAuto  markdownTheme = "auto"
	markdownThemeDark  markdownTheme = "dark"
	markdownThemeLight markdownTheme = "light"
)

// markdownThemes is the cycle order of the help/preview themes.
var markdownThemes = []markdownTheme{markdownThemeAuto, markdownThemeDark, markdownThemeLight}

// glamourCache rebuilds the renderer lazily after the wrap width or theme
// changes. Preview rendering and the help overlay share it.
type glamourCache struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	theme    markdownTheme
	wrap     int
}

var markdownCache = &glamourCache{theme: markdownThemeAuto, wrap: 80}

func (c *glamourCache) get() *glamour.TermRenderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renderer != nil {
		return c.renderer
	}
	style := glamour.WithAutoStyle()
	if c.theme != markdownThemeAuto {
		style = glamour.WithStandardStyle(string(c.theme))
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(c.wrap))
	if err != nil {
		return nil
	}
	c.renderer = r
	return r
}

func (c *glamourCache) configure(theme markdownTheme, wrap int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if theme == c.theme && wrap == c.wrap {
		return
	}
	c.theme, c.wrap = theme, wrap
	c.renderer = nil
}

// RenderMarkdown renders content for the terminal, or returns it unchanged
// when glamour fails.
func RenderMarkdown(content string) string {
	r := markdownCache.get()
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

func setMarkdownWordWrap(width int) {
	markdownCache.mu.Lock()
	theme := markdownCache.theme
	markdownCache.mu.Unlock()
	markdownCache.configure(theme, maxInt(width, 0))
}

func setMarkdownTheme(theme markdownTheme) {
	if theme == "" {
		theme = markdownThemeAuto
	}
	markdownCache.mu.Lock()
	wrap := markdownCache.wrap
	markdownCache.mu.Unlock()
	markdownCache.configure(theme, wrap)
}

func markdownThemeFromString(value string) markdownTheme {
	want := markdownTheme(strings.ToLower(strings.TrimSpace(value)))
	for _, theme := range markdownThemes {
		if theme == want {
			return theme
		}
	}
	return markdownThemeAuto
}

func nextMarkdownTheme(theme markdownTheme) markdownTheme {
	for i, t := range markdownThemes {
		if t == theme {
			return markdownThemes[(i+1)%len(markdownThemes)]
		}
	}
	return markdownThemeAuto
}

// helpMarkdown documents the key bindings and the workspace conventions.
func helpMarkdown(keys keyMap) string {
	var b strings.Builder
	b.WriteString("# workbench\n\n")
	b.WriteString("Commands run one at a time. Starting a build, run or clean stops whatever is running first. ")
	b.WriteString("A failed step cancels the rest of the queue.\n\n")
	b.WriteString("| key | action |\n|---|---|\n")
	for _, group := range keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			if h.Key == "" {
				continue
			}
			b.WriteString("| `" + h.Key + "` | " + h.Desc + " |\n")
		}
	}
	b.WriteString("\nDeleted entries are moved to `.workbench/trash` inside the workspace. ")
	b.WriteString("Expanded folders are remembered in `.workbench/workspace.yaml`.\n")
	return b.String()
}
