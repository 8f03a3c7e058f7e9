package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/command"
	"github.com/bekirdag/workbench/internal/dispatch"
	"github.com/bekirdag/workbench/internal/issues"
	"github.com/bekirdag/workbench/internal/session"
	"github.com/bekirdag/workbench/internal/telemetry"
	"github.com/bekirdag/workbench/internal/workspace"
)

const maxOutputLines = 2000

type keyMap struct {
	quit        key.Binding
	nextFocus   key.Binding
	prevFocus   key.Binding
	build       key.Binding
	run         key.Binding
	clean       key.Binding
	stop        key.Binding
	newFile     key.Binding
	newFolder   key.Binding
	rename      key.Binding
	move        key.Binding
	remove      key.Binding
	mark        key.Binding
	copyPath    key.Binding
	preview     key.Binding
	toggleTheme key.Binding
	toggleHelp  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		nextFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		prevFocus: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev panel"),
		),
		build: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "build"),
		),
		run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "build and debug"),
		),
		clean: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clean"),
		),
		stop: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "stop"),
		),
		newFile: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new file"),
		),
		newFolder: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "new folder"),
		),
		rename: key.NewBinding(
			key.WithKeys("R", "f2"),
			key.WithHelp("R", "rename"),
		),
		move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to folder"),
		),
		remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		mark: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "mark"),
		),
		copyPath: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy path"),
		),
		preview: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "toggle preview"),
		),
		toggleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "help theme"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.build,
		k.run,
		k.clean,
		k.stop,
		k.nextFocus,
		k.toggleHelp,
		k.quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.build, k.run, k.clean, k.stop},
		{k.newFile, k.newFolder, k.rename, k.move, k.remove, k.mark},
		{k.copyPath, k.preview, k.nextFocus, k.prevFocus},
		{k.toggleTheme, k.toggleHelp, k.quit},
	}
}

type pane int

const (
	paneTree pane = iota
	paneOutput
	paneIssues
	paneCount
)

type inputMode int

const (
	inputNone inputMode = iota
	inputRename
	inputMove
	inputConfirmDelete
)

// postedMsg wakes Update to drain work posted to the control context.
type postedMsg struct{}

func waitForPosted(loop *dispatch.Loop) tea.Cmd {
	return func() tea.Msg {
		<-loop.Wake()
		return postedMsg{}
	}
}

type model struct {
	width  int
	height int

	styles  styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	theme   markdownTheme

	loop      *dispatch.Loop
	session   *session.Session
	telemetry *telemetry.Logger
	logger    *zap.Logger

	tree        *treeColumn
	marked      map[workspace.NodeID]bool
	output      viewport.Model
	outputLines []string
	preview     viewport.Model
	showPreview bool
	jobs        []*command.Command
	issues      []issues.Issue
	issueIndex  int
	focus       pane

	input       textinput.Model
	inputMode   inputMode
	inputPrompt string
	inputTarget []workspace.NodeID

	showHelp     bool
	toastMessage string
	toastExpires time.Time
	closedErr    error
}

func newModel(loop *dispatch.Loop, tel *telemetry.Logger, logger *zap.Logger, theme markdownTheme) *model {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := newStyles()
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	input := textinput.New()
	input.CharLimit = 255
	input.Prompt = "> "

	m := &model{
		styles:    s,
		keys:      newKeyMap(),
		help:      help.New(),
		spinner:   sp,
		theme:     theme,
		loop:      loop,
		telemetry: tel,
		logger:    logger,
		tree:      newTreeColumn("Workspace", s),
		marked:    map[workspace.NodeID]bool{},
		output:    viewport.New(80, 10),
		preview:   viewport.New(80, 10),
		input:     input,
	}
	m.tree.SetCallbacks(nil, m.toggleFolder, m.openFile)
	return m
}

// attach binds an opened session and shows its tree.
func (m *model) attach(s *session.Session) {
	m.session = s
	m.refreshTree()
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForPosted(m.loop))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case postedMsg:
		m.loop.Drain()
		return m, waitForPosted(m.loop)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		if m.inputMode != inputNone {
			return m, m.updateInput(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	switch m.focus {
	case paneTree:
		if cmd := m.tree.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case paneOutput:
		var cmd tea.Cmd
		if m.showPreview {
			m.preview, cmd = m.preview.Update(msg)
		} else {
			m.output, cmd = m.output.Update(msg)
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	case paneIssues:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			m.updateIssues(keyMsg)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.shutdown()
		return tea.Quit, true
	case key.Matches(msg, m.keys.toggleHelp):
		m.showHelp = !m.showHelp
		return nil, true
	case m.showHelp && key.Matches(msg, m.keys.toggleTheme):
		m.theme = nextMarkdownTheme(m.theme)
		setMarkdownTheme(m.theme)
		return nil, true
	case m.showHelp:
		if msg.String() == "esc" {
			m.showHelp = false
		}
		return nil, true
	case key.Matches(msg, m.keys.nextFocus):
		m.focus = (m.focus + 1) % paneCount
		return nil, true
	case key.Matches(msg, m.keys.prevFocus):
		m.focus = (m.focus + paneCount - 1) % paneCount
		return nil, true
	case key.Matches(msg, m.keys.build):
		m.trigger(session.OpBuild)
		return nil, true
	case key.Matches(msg, m.keys.run):
		m.trigger(session.OpRun)
		return nil, true
	case key.Matches(msg, m.keys.clean):
		m.trigger(session.OpClean)
		return nil, true
	case key.Matches(msg, m.keys.stop):
		m.trigger(session.OpStop)
		return nil, true
	case key.Matches(msg, m.keys.preview):
		m.showPreview = !m.showPreview
		m.refreshPreview()
		return nil, true
	}
	if m.focus != paneTree || m.workspace() == nil {
		return nil, false
	}
	switch {
	case key.Matches(msg, m.keys.newFile):
		m.create(workspace.File)
	case key.Matches(msg, m.keys.newFolder):
		m.create(workspace.Folder)
	case key.Matches(msg, m.keys.rename):
		if row, ok := m.tree.SelectedRow(); ok && row.Level > 0 {
			m.openInput(inputRename, "Rename "+row.Name, row.Name, []workspace.NodeID{row.ID})
		}
	case key.Matches(msg, m.keys.move):
		if ids := m.selection(); len(ids) > 0 {
			m.openInput(inputMove, fmt.Sprintf("Move %d item(s) to folder (relative to the workspace)", len(ids)), "", ids)
		}
	case key.Matches(msg, m.keys.remove):
		if ids := m.selection(); len(ids) > 0 {
			m.openInput(inputConfirmDelete, fmt.Sprintf("Move %d item(s) to the trash? (y/n)", len(ids)), "", ids)
		}
	case key.Matches(msg, m.keys.mark):
		if row, ok := m.tree.SelectedRow(); ok && row.Level > 0 {
			if m.marked[row.ID] {
				delete(m.marked, row.ID)
			} else {
				m.marked[row.ID] = true
			}
			m.refreshTree()
		}
	case key.Matches(msg, m.keys.copyPath):
		m.copySelectedPath()
	default:
		return nil, false
	}
	return nil, true
}

func (m *model) trigger(op session.Operation) {
	if m.session == nil || m.session.Closed() {
		m.setToast("No workspace open", 4*time.Second)
		return
	}
	if !m.session.Runnable()[op] {
		m.setToast(fmt.Sprintf("%s is not available right now", op), 4*time.Second)
		return
	}
	if op != session.OpStop {
		m.outputLines = nil
		m.output.SetContent("")
	}
	if err := m.session.Trigger(op); err != nil {
		m.logger.Warn("trigger failed", zap.String("operation", string(op)), zap.Error(err))
		m.setToast(err.Error(), 6*time.Second)
	}
}

func (m *model) workspace() *workspace.Model {
	if m.session == nil || m.session.Closed() {
		return nil
	}
	return m.session.Model()
}

// selection is the marked nodes, or the highlighted one when nothing is marked.
func (m *model) selection() []workspace.NodeID {
	var ids []workspace.NodeID
	for _, row := range m.tree.Rows() {
		if m.marked[row.ID] {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	if row, ok := m.tree.SelectedRow(); ok && row.Level > 0 {
		return []workspace.NodeID{row.ID}
	}
	return nil
}

func (m *model) create(kind workspace.Kind) {
	ws := m.workspace()
	row, ok := m.tree.SelectedRow()
	if !ok {
		return
	}
	parent := row.ID
	if !row.Folder {
		parent = row.Parent
	}
	var (
		node *workspace.Node
		err  error
	)
	if kind == workspace.Folder {
		node, err = ws.CreateFolder(parent)
	} else {
		node, err = ws.CreateFile(parent)
	}
	if err != nil {
		m.setToast(err.Error(), 6*time.Second)
		return
	}
	if p := ws.Node(parent); p != nil && !p.Expanded {
		if err := ws.SetExpanded(parent, true); err != nil {
			m.logger.Warn("expand folder", zap.Error(err))
		}
	}
	m.refreshTree()
	m.tree.SelectID(node.ID)
	m.openInput(inputRename, "Name the new "+strings.ToLower(kind.String()), node.Name, []workspace.NodeID{node.ID})
}

func (m *model) toggleFolder(row treeRow) tea.Cmd {
	ws := m.workspace()
	if ws == nil || row.Level == 0 {
		return nil
	}
	if err := ws.SetExpanded(row.ID, !row.Expanded); err != nil {
		m.setToast(err.Error(), 6*time.Second)
	}
	m.refreshTree()
	return nil
}

func (m *model) openFile(row treeRow) tea.Cmd {
	ws := m.workspace()
	if ws == nil {
		return nil
	}
	ws.SetEditingTarget(ws.Path(row.ID))
	m.refreshTree()
	m.refreshPreview()
	m.setToast("Editing "+row.Rel, 3*time.Second)
	return nil
}

func (m *model) copySelectedPath() {
	ws := m.workspace()
	row, ok := m.tree.SelectedRow()
	if ws == nil || !ok {
		return
	}
	path := ws.Path(row.ID)
	if err := clipboard.WriteAll(path); err != nil {
		m.setToast(fmt.Sprintf("Copy failed: %v", err), 5*time.Second)
		return
	}
	m.setToast("Copied "+path, 3*time.Second)
}

func (m *model) openInput(mode inputMode, prompt, value string, targets []workspace.NodeID) {
	m.inputMode = mode
	m.inputPrompt = prompt
	m.inputTarget = targets
	m.input.SetValue(value)
	m.input.CursorEnd()
	if mode == inputConfirmDelete {
		m.input.Blur()
		return
	}
	m.input.Focus()
}

func (m *model) closeInput() {
	m.inputMode = inputNone
	m.inputPrompt = ""
	m.inputTarget = nil
	m.input.Blur()
	m.input.SetValue("")
}

func (m *model) updateInput(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" {
		m.closeInput()
		return nil
	}
	if m.inputMode == inputConfirmDelete {
		switch msg.String() {
		case "y", "Y", "enter":
			m.deleteTargets(m.inputTarget)
			m.closeInput()
		case "n", "N":
			m.closeInput()
		}
		return nil
	}
	if msg.String() == "enter" {
		m.submitInput(strings.TrimSpace(m.input.Value()))
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) submitInput(value string) {
	ws := m.workspace()
	mode, targets := m.inputMode, m.inputTarget
	m.closeInput()
	if ws == nil || value == "" {
		return
	}
	switch mode {
	case inputRename:
		if err := ws.Rename(targets[0], value); err != nil {
			m.setToast(err.Error(), 6*time.Second)
		}
	case inputMove:
		dest, ok := ws.Lookup(filepath.Join(ws.RootPath(), filepath.FromSlash(value)))
		if !ok || !dest.IsFolder() {
			m.setToast(fmt.Sprintf("%s is not a folder in this workspace", value), 6*time.Second)
			return
		}
		for _, id := range targets {
			if err := ws.Move(id, dest.ID); err != nil {
				m.setToast(err.Error(), 6*time.Second)
				break
			}
		}
		m.marked = map[workspace.NodeID]bool{}
	}
	m.refreshTree()
}

func (m *model) deleteTargets(ids []workspace.NodeID) {
	ws := m.workspace()
	if ws == nil {
		return
	}
	err := ws.Delete(ids)
	m.marked = map[workspace.NodeID]bool{}
	var partial *workspace.PartialDeleteError
	switch {
	case errors.As(err, &partial):
		m.setToast(fmt.Sprintf("Deleted %d, %d left: %v", len(partial.Deleted), len(partial.Remaining), partial.Err), 8*time.Second)
	case err != nil:
		m.setToast(err.Error(), 6*time.Second)
	default:
		m.setToast(fmt.Sprintf("Moved %d item(s) to the trash", len(ids)), 3*time.Second)
	}
	m.refreshTree()
}

func (m *model) updateIssues(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		if m.issueIndex > 0 {
			m.issueIndex--
		}
	case "down", "j":
		if m.issueIndex < len(m.issues)-1 {
			m.issueIndex++
		}
	case "enter":
		m.revealIssue()
	}
}

// revealIssue expands the folders leading to the selected issue's file and
// makes it the editing target.
func (m *model) revealIssue() {
	ws := m.workspace()
	if ws == nil || m.issueIndex >= len(m.issues) {
		return
	}
	origin := m.issues[m.issueIndex].Origin
	node, ok := ws.Lookup(origin)
	if !ok {
		m.setToast(origin+" is not in the workspace tree", 4*time.Second)
		return
	}
	for p := ws.Node(node.Parent); p != nil && p.ID != ws.Root().ID; p = ws.Node(p.Parent) {
		if !p.Expanded {
			if err := ws.SetExpanded(p.ID, true); err != nil {
				m.logger.Warn("expand folder", zap.Error(err))
			}
		}
	}
	ws.SetEditingTarget(origin)
	m.refreshTree()
	m.refreshPreview()
	m.tree.SelectID(node.ID)
	m.focus = paneTree
}

func (m *model) refreshTree() {
	if m.session == nil {
		return
	}
	m.tree.SetRows(visibleRows(m.workspace(), m.marked))
}

// handleSessionEvent runs on the control context, inside Update.
func (m *model) handleSessionEvent(ev session.Event) {
	switch ev := ev.(type) {
	case session.TreeEvent:
		m.handleTreeEvent(ev.Event)
	case session.QueueEvent:
		m.handleQueueEvent(ev.Event)
	case session.IssuesChanged:
		m.issues = m.session.Issues().Issues()
		if m.issueIndex >= len(m.issues) {
			m.issueIndex = 0
		}
	case session.Closed:
		m.closedErr = ev.Err
		if ev.Err != nil {
			m.setToast(ev.Err.Error(), 0)
		}
	}
}

func (m *model) handleTreeEvent(ev workspace.Event) {
	switch ev := ev.(type) {
	case workspace.EditingTargetDisappeared:
		m.setToast(filepath.Base(ev.Path)+" was removed", 5*time.Second)
		m.refreshPreview()
	case workspace.EditingTargetMoved:
		m.setToast(fmt.Sprintf("%s moved to %s", filepath.Base(ev.From), ev.To), 5*time.Second)
		m.refreshPreview()
	case workspace.NodeInvalidated:
		if ws := m.workspace(); ws != nil && ev.Path == ws.EditingTarget() {
			m.refreshPreview()
		}
	case workspace.WorkspaceRootDisappeared:
		m.logger.Warn("workspace root disappeared", zap.String("root", ev.Root), zap.Error(ev.Err))
		m.tree.SetRows(nil)
		return
	}
	m.refreshTree()
}

func (m *model) handleQueueEvent(ev command.Event) {
	switch ev := ev.(type) {
	case command.Queued:
		m.trackJob(ev.Command)
	case command.StatusChanged:
		m.telemetry.Emit(telemetry.CommandEvent(m.session.Root(), ev))
		switch ev.To {
		case command.Running:
			m.appendOutput(m.styles.muted.Render(fmt.Sprintf("── %s started", jobLabel(ev.Command))))
		case command.Failed:
			m.appendOutput(m.styles.danger.Render(fmt.Sprintf("── %s failed: %v", jobLabel(ev.Command), ev.Command.Err)))
		case command.Succeeded:
			m.appendOutput(m.styles.success.Render(fmt.Sprintf("── %s finished in %s", jobLabel(ev.Command), formatElapsed(ev.Command.Duration()))))
		}
	case command.Output:
		m.appendOutput(ev.Line)
	}
}

// refreshPreview reloads the preview of the editing target when it is shown.
func (m *model) refreshPreview() {
	if !m.showPreview {
		return
	}
	target := ""
	if ws := m.workspace(); ws != nil {
		target = ws.EditingTarget()
	}
	if target == "" {
		m.preview.SetContent(m.styles.muted.Render("Open a file with enter to preview it."))
		return
	}
	m.preview.SetContent(previewPath(target))
	m.preview.GotoTop()
}

func (m *model) appendOutput(line string) {
	m.outputLines = append(m.outputLines, line)
	if over := len(m.outputLines) - maxOutputLines; over > 0 {
		m.outputLines = append([]string(nil), m.outputLines[over:]...)
	}
	atBottom := m.output.AtBottom()
	m.output.SetContent(strings.Join(m.outputLines, "\n"))
	if atBottom {
		m.output.GotoBottom()
	}
}

func (m *model) shutdown() {
	if m.session == nil {
		return
	}
	if err := m.session.Close(); err != nil {
		m.logger.Warn("close workspace", zap.Error(err))
	}
}

func (m *model) setToast(msg string, duration time.Duration) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		m.toastMessage = ""
		m.toastExpires = time.Time{}
		return
	}
	if duration <= 0 {
		duration = 5 * time.Second
	}
	m.toastMessage = trimmed
	m.toastExpires = time.Now().Add(duration)
}

func (m *model) layout() {
	treeWidth := m.width / 3
	if treeWidth < 28 {
		treeWidth = 28
	}
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}
	m.tree.SetSize(treeWidth, bodyHeight)
	rightWidth := m.width - treeWidth - 2
	if rightWidth < 20 {
		rightWidth = 20
	}
	m.output.Width = rightWidth - 2
	m.output.Height = maxInt(bodyHeight/2-3, 3)
	m.preview.Width = m.output.Width
	m.preview.Height = m.output.Height
	setMarkdownWordWrap(maxInt(m.width-8, 20))
}

func (m *model) View() string {
	var builder strings.Builder

	m.help.Width = maxInt(m.width-4, 0)

	builder.WriteString(m.styles.topBar.Render("workbench"))
	if m.session != nil {
		builder.WriteString(m.styles.topStatus.Render(m.session.Root()))
	}
	builder.WriteRune('\n')

	if m.showHelp {
		builder.WriteString(RenderMarkdown(helpMarkdown(m.keys)))
		builder.WriteString(m.styles.cmdHint.Render("esc close • t cycle theme"))
		return builder.String()
	}

	if m.closedErr != nil {
		builder.WriteString(m.styles.danger.Render("Workspace closed: " + m.closedErr.Error()))
		builder.WriteString("\n\n")
		builder.WriteString(m.styles.cmdHint.Render("q quit"))
		return builder.String()
	}

	rightWidth := maxInt(m.width-m.tree.width-2, 20)
	bodyHeight := maxInt(m.height-4, 8)
	jobs := m.panel(m.renderJobQueue(), rightWidth, false)
	output := m.panel(m.styles.columnTitle.Render("Output")+"\n"+m.output.View(), rightWidth, m.focus == paneOutput)
	if m.showPreview {
		output = m.panel(m.styles.columnTitle.Render("Preview")+"\n"+m.preview.View(), rightWidth, m.focus == paneOutput)
	}
	remaining := bodyHeight - lipgloss.Height(jobs) - lipgloss.Height(output) - 2
	issuesView := m.panel(m.renderIssues(maxInt(remaining, 3)), rightWidth, m.focus == paneIssues)

	right := lipgloss.JoinVertical(lipgloss.Left, jobs, output, issuesView)
	row := lipgloss.JoinHorizontal(lipgloss.Top, m.tree.View(m.styles, m.focus == paneTree), right)
	builder.WriteString(row)
	builder.WriteRune('\n')

	if m.inputMode != inputNone {
		var content strings.Builder
		content.WriteString(m.styles.cmdPrompt.Render(m.inputPrompt))
		if m.inputMode != inputConfirmDelete {
			content.WriteRune('\n')
			content.WriteString(m.input.View())
			content.WriteRune('\n')
			content.WriteString(m.styles.cmdHint.Render("enter confirm • esc cancel"))
		}
		builder.WriteString(m.styles.cmdOverlay.Width(minInt(64, maxInt(m.width-4, 24))).Render(content.String()))
		builder.WriteRune('\n')
	}

	if helpView := m.help.View(m.keys); helpView != "" {
		builder.WriteString(helpView)
		builder.WriteRune('\n')
	}
	builder.WriteString(m.renderStatus())
	return builder.String()
}

func (m *model) panel(body string, width int, focused bool) string {
	if focused {
		return m.styles.panelFocused.Width(width).Render(body)
	}
	return m.styles.panel.Width(width).Render(body)
}

func (m *model) renderStatus() string {
	var segs []string
	if m.session != nil {
		ops := m.session.Runnable()
		var enabled []string
		for _, op := range []session.Operation{session.OpBuild, session.OpRun, session.OpClean, session.OpStop} {
			if ops[op] {
				enabled = append(enabled, string(op))
			}
		}
		segs = append(segs, m.styles.statusSeg.Render(strings.Join(enabled, " ")))
		if target := m.session.Model().EditingTarget(); target != "" {
			segs = append(segs, m.styles.statusSeg.Render("✎ "+filepath.Base(target)))
		}
	}
	if m.toastMessage != "" && time.Now().Before(m.toastExpires) {
		segs = append(segs, m.styles.statusHint.Render(m.toastMessage))
	}
	return m.styles.statusBar.Render(strings.Join(segs, ""))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
