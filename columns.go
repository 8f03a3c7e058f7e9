package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/workbench/internal/workspace"
)

type treeRow struct {
	ID       workspace.NodeID
	Parent   workspace.NodeID
	Name     string
	Rel      string
	Level    int
	Folder   bool
	Expanded bool
	Marked   bool
	Editing  bool
}

// visibleRows flattens the expanded part of the tree. Listing a folder's
// children re-reads it if a watcher event invalidated it.
func visibleRows(ws *workspace.Model, marked map[workspace.NodeID]bool) []treeRow {
	if ws == nil || ws.Closed() {
		return nil
	}
	root := ws.Root()
	if root == nil {
		return nil
	}
	editing := ws.EditingTarget()
	rows := []treeRow{{
		ID:       root.ID,
		Name:     filepath.Base(ws.RootPath()),
		Rel:      ".",
		Folder:   true,
		Expanded: true,
		Marked:   marked[root.ID],
	}}
	var walk func(id workspace.NodeID, level int)
	walk = func(id workspace.NodeID, level int) {
		for _, child := range ws.Children(id) {
			path := ws.Path(child.ID)
			rel, _ := filepath.Rel(ws.RootPath(), path)
			rows = append(rows, treeRow{
				ID:       child.ID,
				Parent:   id,
				Name:     child.Name,
				Rel:      filepath.ToSlash(rel),
				Level:    level,
				Folder:   child.IsFolder(),
				Expanded: child.Expanded,
				Marked:   marked[child.ID],
				Editing:  path == editing,
			})
			if child.IsFolder() && child.Expanded {
				walk(child.ID, level+1)
			}
		}
	}
	walk(root.ID, 1)
	return rows
}

type treeEntry struct {
	row       treeRow
	markStyle lipgloss.Style
}

func (e treeEntry) Title() string {
	icon := "•"
	if e.row.Folder {
		if e.row.Expanded {
			icon = "▾"
		} else {
			icon = "▸"
		}
	}
	mark := " "
	name := e.row.Name
	if e.row.Marked {
		mark = "*"
		name = e.markStyle.Render(name)
	}
	if e.row.Editing {
		name += " ✎"
	}
	return fmt.Sprintf("%s%s%s %s", mark, strings.Repeat("  ", e.row.Level), icon, name)
}

func (e treeEntry) Description() string { return e.row.Rel }
func (e treeEntry) FilterValue() string { return e.row.Rel }

type treeColumn struct {
	title       string
	model       list.Model
	markStyle   lipgloss.Style
	width       int
	height      int
	onHighlight func(treeRow) tea.Cmd
	onToggle    func(treeRow) tea.Cmd
	onActivate  func(treeRow) tea.Cmd
}

func newTreeColumn(title string, s styles) *treeColumn {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = s.listSel
	delegate.Styles.SelectedDesc = s.listSel
	delegate.Styles.NormalTitle = s.listItem
	delegate.Styles.NormalDesc = s.listItem.Copy().Foreground(palette.textMuted)

	model := list.New([]list.Item{}, delegate, 36, 20)
	model.Title = title
	model.SetShowTitle(false)
	model.SetShowStatusBar(false)
	model.SetFilteringEnabled(false)
	model.SetShowHelp(false)
	model.SetShowPagination(false)
	model.KeyMap.Quit.SetEnabled(false)
	model.KeyMap.ForceQuit.SetEnabled(false)
	model.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"))
	model.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"))

	return &treeColumn{
		title:     title,
		model:     model,
		markStyle: s.listMarked,
	}
}

func (c *treeColumn) SetCallbacks(onHighlight, onToggle, onActivate func(treeRow) tea.Cmd) {
	c.onHighlight = onHighlight
	c.onToggle = onToggle
	c.onActivate = onActivate
}

// SetRows replaces the rows and keeps the selection on the same node when it
// is still visible.
func (c *treeColumn) SetRows(rows []treeRow) {
	selected, hadSelection := c.SelectedRow()
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = treeEntry{row: row, markStyle: c.markStyle}
	}
	c.model.SetItems(items)
	if len(items) == 0 {
		return
	}
	if hadSelection && c.SelectID(selected.ID) {
		return
	}
	if hadSelection && c.SelectID(selected.Parent) {
		return
	}
	c.model.Select(0)
}

func (c *treeColumn) SelectedRow() (treeRow, bool) {
	if entry, ok := c.model.SelectedItem().(treeEntry); ok {
		return entry.row, true
	}
	return treeRow{}, false
}

// SelectID moves the cursor to id and reports whether it is visible.
func (c *treeColumn) SelectID(id workspace.NodeID) bool {
	for idx, item := range c.model.Items() {
		if entry, ok := item.(treeEntry); ok && entry.row.ID == id {
			c.model.Select(idx)
			return true
		}
	}
	return false
}

func (c *treeColumn) Rows() []treeRow {
	items := c.model.Items()
	out := make([]treeRow, 0, len(items))
	for _, item := range items {
		if entry, ok := item.(treeEntry); ok {
			out = append(out, entry.row)
		}
	}
	return out
}

func (c *treeColumn) SetSize(width, height int) {
	c.width = maxInt(width, 24)
	if height < 3 {
		height = 3
	}
	c.height = height
	c.model.SetSize(c.width-2, height-3)
}

func (c *treeColumn) Update(msg tea.Msg) tea.Cmd {
	prev := c.model.Index()
	var cmds []tea.Cmd

	var cmd tea.Cmd
	c.model, cmd = c.model.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			if row, ok := c.SelectedRow(); ok {
				if row.Folder {
					if c.onToggle != nil {
						cmds = append(cmds, c.onToggle(row))
					}
				} else if c.onActivate != nil {
					cmds = append(cmds, c.onActivate(row))
				}
			}
		case "right", "l":
			if row, ok := c.SelectedRow(); ok && row.Folder && !row.Expanded && c.onToggle != nil {
				cmds = append(cmds, c.onToggle(row))
			}
		case "left", "h":
			if row, ok := c.SelectedRow(); ok {
				if row.Folder && row.Expanded && row.Level > 0 {
					if c.onToggle != nil {
						cmds = append(cmds, c.onToggle(row))
					}
				} else if row.Level > 0 {
					c.SelectID(row.Parent)
				}
			}
		}
	}

	if c.model.Index() != prev && c.onHighlight != nil {
		if row, ok := c.SelectedRow(); ok {
			if run := c.onHighlight(row); run != nil {
				cmds = append(cmds, run)
			}
		}
	}

	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (c *treeColumn) View(s styles, focused bool) string {
	body := lipgloss.JoinVertical(lipgloss.Left, s.columnTitle.Render(c.title), c.model.View())
	if focused {
		return s.panelFocused.Width(c.width).Render(body)
	}
	return s.panel.Width(c.width).Render(body)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
