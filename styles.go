package main

import "github.com/charmbracelet/lipgloss"

type colorPalette struct {
	text      lipgloss.AdaptiveColor
	textMuted lipgloss.AdaptiveColor
	accent    lipgloss.AdaptiveColor
	border    lipgloss.AdaptiveColor
	selection lipgloss.AdaptiveColor
	success   lipgloss.AdaptiveColor
	warning   lipgloss.AdaptiveColor
	danger    lipgloss.AdaptiveColor
}

var palette = colorPalette{
	text:      lipgloss.AdaptiveColor{Light: "#1f2328", Dark: "#e6edf3"},
	textMuted: lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"},
	accent:    lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"},
	border:    lipgloss.AdaptiveColor{Light: "#d0d7de", Dark: "#30363d"},
	selection: lipgloss.AdaptiveColor{Light: "#ddf4ff", Dark: "#1f3a5f"},
	success:   lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"},
	warning:   lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"},
	danger:    lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"},
}

type styles struct {
	topBar, topStatus                lipgloss.Style
	columnTitle                      lipgloss.Style
	panel, panelFocused              lipgloss.Style
	statusBar, statusSeg, statusHint lipgloss.Style
	listItem, listSel, listMarked    lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint   lipgloss.Style
	success, warning, danger, muted  lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	panelBorder := lipgloss.NormalBorder()
	focusedBorder := lipgloss.DoubleBorder()

	return styles{
		topBar:       base.Copy().Bold(true).Padding(0, 1).Foreground(palette.accent),
		topStatus:    base.Copy().Foreground(palette.textMuted),
		columnTitle:  base.Copy().Bold(true).Padding(0, 1),
		panel:        base.Copy().BorderStyle(panelBorder).BorderForeground(palette.border),
		panelFocused: base.Copy().BorderStyle(focusedBorder).BorderForeground(palette.accent),
		statusBar:    base.Copy().Padding(0, 1),
		statusSeg:    base.Copy().Padding(0, 1).MarginRight(1).Background(palette.selection),
		statusHint:   base.Copy().Faint(true),
		listItem:     base.Copy().Padding(0, 1),
		listSel:      base.Copy().Padding(0, 1).Bold(true).Background(palette.selection),
		listMarked:   base.Copy().Foreground(palette.warning),
		cmdOverlay:   base.Copy().Border(lipgloss.RoundedBorder()).Padding(1, 2),
		cmdPrompt:    base.Copy().Bold(true),
		cmdHint:      base.Copy().Faint(true),
		success:      base.Copy().Foreground(palette.success),
		warning:      base.Copy().Foreground(palette.warning),
		danger:       base.Copy().Foreground(palette.danger),
		muted:        base.Copy().Foreground(palette.textMuted),
	}
}
