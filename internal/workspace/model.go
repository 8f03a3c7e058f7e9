// Package workspace keeps an in-memory tree of a project directory in step
// with the filesystem. Structural edits go through the OS first and touch the
// tree only on success; watcher events are reconciled lazily.
//
// A Model is not safe for concurrent use. Every call must come from the one
// control context that owns it.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bekirdag/workbench/internal/fsevent"
)

const maxUntitled = 1000

// Options wires a Model to its collaborators.
type Options struct {
	FS       FileSystem
	Config   ConfigStore
	Notifier Notifier
	Logger   *zap.Logger
}

// Model owns the tree of one workspace.
type Model struct {
	fs       FileSystem
	config   ConfigStore
	notifier Notifier
	logger   *zap.Logger

	root     string
	rootInfo fs.FileInfo
	tree     *Tree
	editing  string
	closed   bool
}

// NewModel returns an unloaded model. A nil FS means the local disk.
func NewModel(opts Options) *Model {
	m := &Model{
		fs:       opts.FS,
		config:   opts.Config,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	if m.fs == nil {
		m.fs = OSFileSystem{}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Load builds the tree for root, from the sidecar when one exists or else by
// reading the root directory. Folders below the root are listed on first use.
func (m *Model) Load(root string) (*Node, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fsError("open", root, err)
	}
	info, err := m.fs.Stat(abs)
	if err != nil {
		return nil, fsError("open", abs, err)
	}
	if !info.IsDir() {
		return nil, fsError("open", abs, ErrNotFolder)
	}

	m.root = abs
	m.rootInfo = info
	m.tree = newTree(abs)
	m.editing = ""
	m.closed = false

	var snap *Snapshot
	if m.config != nil {
		snap, err = m.config.Read(abs)
		if err != nil {
			m.logger.Warn("workspace config unreadable, rescanning", zap.String("root", abs), zap.Error(err))
			snap = nil
		}
	}
	if snap != nil {
		m.hydrate(*snap)
		m.logger.Debug("workspace hydrated", zap.String("root", abs), zap.Int("entries", len(snap.Entries)))
	} else {
		if err := m.load(m.tree.root); err != nil {
			return nil, fsError("open", abs, err)
		}
		m.persist()
		m.logger.Debug("workspace scanned", zap.String("root", abs))
	}
	return m.tree.node(m.tree.root), nil
}

// hydrate rebuilds nodes from persisted entries. Every folder is left
// unloaded so the next query merges what is actually on disk.
func (m *Model) hydrate(snap Snapshot) {
	entries := append([]Entry(nil), snap.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return depth(entries[i].Path) < depth(entries[j].Path)
	})
	rootNode := m.tree.node(m.tree.root)
	rootNode.loaded = false
	for _, entry := range entries {
		rel := filepath.Clean(filepath.FromSlash(entry.Path))
		if rel == "." {
			rootNode.Expanded = entry.Expanded
			continue
		}
		if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			continue
		}
		parent := rootNode
		parts := strings.Split(rel, string(filepath.Separator))
		for i, part := range parts {
			if isHiddenName(part) {
				parent = nil
				break
			}
			next := m.tree.child(parent.ID, part)
			if next == nil {
				kind := Folder
				if i == len(parts)-1 && !entry.Folder {
					kind = File
				}
				next = m.tree.add(parent.ID, kind, part)
			}
			parent = next
		}
		if parent != nil && parent.IsFolder() {
			parent.Expanded = entry.Expanded
		}
	}
}

func depth(rel string) int {
	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// load lists a folder and merges the listing into its children. Existing
// children of the same name and kind keep their ids and expand state; new
// entries are appended collapsed in listing order.
func (m *Model) load(id NodeID) error {
	n := m.tree.node(id)
	if n == nil || !n.IsFolder() {
		return nil
	}
	entries, err := m.fs.ReadDir(m.tree.path(id))
	if err != nil {
		n.loaded = true
		return err
	}
	sortEntries(entries)

	seen := make(map[string]Kind, len(entries))
	for _, entry := range entries {
		if isHiddenName(entry.Name) {
			continue
		}
		kind := File
		if entry.IsDir {
			kind = Folder
		}
		seen[entry.Name] = kind
	}
	for _, child := range append([]NodeID(nil), n.Children...) {
		c := m.tree.node(child)
		if kind, ok := seen[c.Name]; !ok || kind != c.Kind {
			m.tree.remove(child)
		}
	}
	for _, entry := range entries {
		kind, ok := seen[entry.Name]
		if !ok || m.tree.child(id, entry.Name) != nil {
			continue
		}
		m.tree.add(id, kind, entry.Name)
	}
	n.loaded = true
	n.listed = true
	return nil
}

func (m *Model) ensureLoaded(id NodeID) {
	n := m.tree.node(id)
	if n == nil || n.loaded {
		return
	}
	if err := m.load(id); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Debug("list folder failed", zap.String("path", m.tree.path(id)), zap.Error(err))
	}
}

// Root returns the root node, or nil before Load.
func (m *Model) Root() *Node {
	if m.tree == nil {
		return nil
	}
	return m.tree.node(m.tree.root)
}

// RootPath returns the absolute workspace root.
func (m *Model) RootPath() string { return m.root }

// Node returns the node for id without touching the filesystem.
func (m *Model) Node(id NodeID) *Node { return m.tree.node(id) }

// Path returns the absolute path of id.
func (m *Model) Path(id NodeID) string {
	if m.tree == nil || m.tree.node(id) == nil {
		return ""
	}
	return m.tree.path(id)
}

// Children returns the children of a folder, listing it first if needed.
func (m *Model) Children(id NodeID) []*Node {
	if m.tree == nil {
		return nil
	}
	m.ensureLoaded(id)
	n := m.tree.node(id)
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		out = append(out, m.tree.node(child))
	}
	return out
}

// Lookup finds the node for an absolute path, listing folders on the way.
func (m *Model) Lookup(path string) (*Node, bool) {
	rel, ok := m.rel(path)
	if !ok {
		return nil, false
	}
	n := m.tree.node(m.tree.root)
	if rel == "." {
		return n, true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		m.ensureLoaded(n.ID)
		c := m.tree.child(n.ID, part)
		if c == nil {
			return nil, false
		}
		n = c
	}
	return n, true
}

// Walk visits nodes in memory depth-first. A stale folder whose contents are
// in memory is listed again before it is visited, so removed entries are not
// reported. Folders never listed are not read. Returning false skips the
// node's children.
func (m *Model) Walk(fn func(n *Node, depth int) bool) {
	if m.tree == nil || fn == nil {
		return
	}
	m.walk(m.tree.root, 0, fn)
}

func (m *Model) walk(id NodeID, depth int, fn func(*Node, int) bool) {
	n := m.tree.node(id)
	if n == nil {
		return
	}
	if n.IsFolder() && !n.loaded && (n.listed || len(n.Children) > 0) {
		m.ensureLoaded(id)
	}
	if !fn(n, depth) {
		return
	}
	for _, child := range append([]NodeID(nil), n.Children...) {
		m.walk(child, depth+1, fn)
	}
}

// Len counts the nodes currently in memory.
func (m *Model) Len() int {
	if m.tree == nil {
		return 0
	}
	return len(m.tree.nodes)
}

// Closed reports whether the workspace root disappeared.
func (m *Model) Closed() bool { return m.closed }

// SetEditingTarget records the path open for editing. Empty clears it.
func (m *Model) SetEditingTarget(path string) {
	if path == "" {
		m.editing = ""
		return
	}
	m.editing = filepath.Clean(path)
}

// EditingTarget returns the path open for editing, if any.
func (m *Model) EditingTarget() string { return m.editing }

// Snapshot captures the in-memory nodes in persisted form, re-listing stale
// folders first.
func (m *Model) Snapshot() Snapshot {
	snap := Snapshot{Version: snapshotVersion}
	m.Walk(func(n *Node, _ int) bool {
		rel, _ := filepath.Rel(m.root, m.tree.path(n.ID))
		snap.Entries = append(snap.Entries, Entry{
			Path:     filepath.ToSlash(rel),
			Folder:   n.IsFolder(),
			Expanded: n.Expanded,
		})
		return true
	})
	return snap
}

// Save writes the sidecar.
func (m *Model) Save() error {
	if m.config == nil || m.tree == nil {
		return nil
	}
	if err := m.config.Write(m.root, m.Snapshot()); err != nil {
		return fmt.Errorf("write workspace config: %w", err)
	}
	return nil
}

func (m *Model) persist() {
	if err := m.Save(); err != nil {
		m.logger.Warn("persist workspace config", zap.String("root", m.root), zap.Error(err))
	}
}

func (m *Model) notify(ev Event) {
	if m.notifier != nil {
		m.notifier.Notify(ev)
	}
}

func (m *Model) rel(path string) (string, bool) {
	if m.tree == nil {
		return "", false
	}
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// CreateFile creates an untitled file at the end of parent.
func (m *Model) CreateFile(parent NodeID) (*Node, error) {
	return m.create(parent, File, "untitled")
}

// CreateFolder creates an untitled folder at the end of parent.
func (m *Model) CreateFolder(parent NodeID) (*Node, error) {
	return m.create(parent, Folder, "untitled folder")
}

func (m *Model) create(parent NodeID, kind Kind, base string) (*Node, error) {
	op := "create " + kind.String()
	if err := m.usable(); err != nil {
		return nil, fsError(op, "", err)
	}
	p := m.tree.node(parent)
	if p == nil {
		return nil, fsError(op, "", ErrUnknownNode)
	}
	dir := m.tree.path(parent)
	if !p.IsFolder() {
		return nil, fsError(op, dir, ErrNotFolder)
	}
	m.ensureLoaded(parent)

	name, err := m.freeName(parent, dir, base)
	if err != nil {
		return nil, fsError(op, dir, err)
	}
	path := filepath.Join(dir, name)
	if kind == Folder {
		err = m.fs.CreateDir(path)
	} else {
		err = m.fs.CreateFile(path)
	}
	if err != nil {
		return nil, fsError(op, path, err)
	}

	n := m.tree.add(parent, kind, name)
	n.loaded = true
	m.persist()
	m.notify(StructureChanged{Path: dir})
	m.logger.Debug("created", zap.String("path", path), zap.Stringer("kind", kind))
	return n, nil
}

func (m *Model) freeName(parent NodeID, dir, base string) (string, error) {
	for i := 1; i <= maxUntitled; i++ {
		name := base
		if i > 1 {
			name = base + " " + strconv.Itoa(i)
		}
		if m.tree.child(parent, name) != nil {
			continue
		}
		if _, err := m.fs.Stat(filepath.Join(dir, name)); err == nil {
			continue
		}
		return name, nil
	}
	return "", ErrNameTaken
}

// Rename gives id a new name within its current folder.
func (m *Model) Rename(id NodeID, newName string) error {
	if err := m.usable(); err != nil {
		return fsError("rename", "", err)
	}
	n := m.tree.node(id)
	if n == nil {
		return fsError("rename", "", ErrUnknownNode)
	}
	from := m.tree.path(id)
	if id == m.tree.root {
		return fsError("rename", from, ErrRootOperation)
	}
	if !validName(newName) {
		return fsError("rename", from, ErrInvalidName)
	}
	if newName == n.Name {
		return nil
	}
	if m.tree.child(n.Parent, newName) != nil {
		return fsError("rename", from, ErrNameTaken)
	}
	to := filepath.Join(filepath.Dir(from), newName)
	if err := m.fs.Move(from, to); err != nil {
		return fsError("rename", from, err)
	}

	n.Name = newName
	m.retarget(from, to)
	m.persist()
	m.notify(StructureChanged{Path: filepath.Dir(from)})
	return nil
}

// Move reparents id under toParent, appending it at the end.
func (m *Model) Move(id, toParent NodeID) error {
	if err := m.usable(); err != nil {
		return fsError("move", "", err)
	}
	n, dest := m.tree.node(id), m.tree.node(toParent)
	if n == nil || dest == nil {
		return fsError("move", "", ErrUnknownNode)
	}
	from := m.tree.path(id)
	if id == m.tree.root {
		return fsError("move", from, ErrRootOperation)
	}
	if !dest.IsFolder() {
		return fsError("move", from, ErrNotFolder)
	}
	destDir := m.tree.path(toParent)
	if isWithin(destDir, from) {
		return fsError("move", from, ErrInvalidMove)
	}
	if n.Parent == toParent {
		return nil
	}
	m.ensureLoaded(toParent)
	if m.tree.child(toParent, n.Name) != nil {
		return fsError("move", from, ErrNameTaken)
	}
	to := filepath.Join(destDir, n.Name)
	if err := m.fs.Move(from, to); err != nil {
		return fsError("move", from, err)
	}

	m.tree.detach(id)
	m.tree.attach(id, toParent)
	m.retarget(from, to)
	m.persist()
	m.notify(StructureChanged{Path: filepath.Dir(from)})
	m.notify(StructureChanged{Path: destDir})
	return nil
}

// Delete trashes the selected entries. A folder selected together with any
// of its descendants is deleted once. Deletion stops at the first failure and
// the returned *PartialDeleteError says what was and was not deleted.
func (m *Model) Delete(ids []NodeID) error {
	if err := m.usable(); err != nil {
		return fsError("delete", "", err)
	}
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		if m.tree.node(id) == nil {
			return fsError("delete", "", ErrUnknownNode)
		}
		if id == m.tree.root {
			return fsError("delete", m.root, ErrRootOperation)
		}
		paths = append(paths, m.tree.path(id))
	}
	targets := topmost(paths)

	var deleted []string
	defer func() {
		if len(deleted) > 0 {
			m.persist()
		}
	}()
	for i, path := range targets {
		if err := m.fs.Trash(path); err != nil {
			return &PartialDeleteError{
				Deleted:   deleted,
				Remaining: append([]string(nil), targets[i:]...),
				Err:       fsError("delete", path, err),
			}
		}
		deleted = append(deleted, path)
		if rel, ok := m.rel(path); ok {
			if n, exact := m.tree.deepest(rel); exact {
				m.tree.remove(n.ID)
			}
		}
		if m.editing != "" && isWithin(m.editing, path) {
			gone := m.editing
			m.editing = ""
			m.notify(EditingTargetDisappeared{Path: gone})
		}
		m.notify(StructureChanged{Path: filepath.Dir(path)})
	}
	return nil
}

// SetExpanded records a folder's expand state and writes the sidecar before
// returning.
func (m *Model) SetExpanded(id NodeID, expanded bool) error {
	n := m.tree.node(id)
	if n == nil {
		return fsError("expand", "", ErrUnknownNode)
	}
	if !n.IsFolder() {
		return fsError("expand", m.tree.path(id), ErrNotFolder)
	}
	n.Expanded = expanded
	if expanded {
		m.ensureLoaded(id)
	}
	return m.Save()
}

// Reconcile applies one watcher event. It never rescans: it marks the
// affected folders unloaded so the next query re-lists them.
func (m *Model) Reconcile(ev fsevent.Event) {
	if m.closed || m.tree == nil {
		return
	}
	path := filepath.Clean(ev.Path)
	if path == m.root {
		if err := m.verifyRoot(); err != nil {
			m.closed = true
			m.editing = ""
			m.logger.Info("workspace root disappeared", zap.String("root", m.root), zap.Error(err))
			m.notify(WorkspaceRootDisappeared{Root: m.root, Err: &RootDisappearedError{Root: m.root, Err: err}})
			return
		}
	}

	switch ev.Op {
	case fsevent.Move, fsevent.Delete:
		if m.editing != "" && isWithin(m.editing, path) {
			gone := m.editing
			m.editing = ""
			m.notify(EditingTargetDisappeared{Path: gone})
		}
	}

	m.invalidate(path)
	m.notify(NodeInvalidated{Path: path, Op: ev.Op})
}

// ReconcileBatch applies a batch strictly in order, stopping if the workspace
// closes part way.
func (m *Model) ReconcileBatch(events []fsevent.Event) {
	for _, ev := range events {
		if m.closed {
			return
		}
		m.Reconcile(ev)
	}
}

func (m *Model) verifyRoot() error {
	info, err := m.fs.Stat(m.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return ErrNotFolder
	}
	if !m.fs.SameFile(m.rootInfo, info) {
		return errors.New("root replaced")
	}
	return nil
}

func (m *Model) invalidate(path string) {
	rel, ok := m.rel(path)
	if !ok {
		return
	}
	n, exact := m.tree.deepest(rel)
	if exact && n.IsFolder() {
		n.loaded = false
	}
	if exact && n.ID != m.tree.root {
		if p := m.tree.node(n.Parent); p != nil {
			p.loaded = false
		}
		return
	}
	if !exact {
		n.loaded = false
	}
}

func (m *Model) retarget(from, to string) {
	if m.editing == "" || !isWithin(m.editing, from) {
		return
	}
	old := m.editing
	m.editing = to + strings.TrimPrefix(old, from)
	m.notify(EditingTargetMoved{From: old, To: m.editing})
}

func (m *Model) usable() error {
	if m.tree == nil || m.closed {
		return ErrClosed
	}
	return nil
}

// validName rejects names that cannot be a single visible entry. Hidden
// names are refused because hidden entries never appear in the tree.
func validName(name string) bool {
	if name == "" || isHiddenName(name) {
		return false
	}
	return !strings.ContainsRune(name, filepath.Separator) && !strings.ContainsRune(name, '/')
}
