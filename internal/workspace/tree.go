package workspace

import (
	"path/filepath"
	"sort"
	"strings"
)

// NodeID identifies a node within one tree. Ids are never reused.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = 0

// Kind distinguishes files from folders.
type Kind int

const (
	File Kind = iota
	Folder
)

func (k Kind) String() string {
	if k == Folder {
		return "folder"
	}
	return "file"
}

// Node is one entry of the tree. Children hold ids owned by the arena; Parent
// is a plain id lookup.
type Node struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Parent   NodeID
	Children []NodeID
	Expanded bool

	// loaded is false for folders whose listing has not been read or has
	// been invalidated since.
	loaded bool
	// listed is set once the folder has been read from disk.
	listed bool
}

func (n *Node) IsFolder() bool { return n != nil && n.Kind == Folder }

// Tree is the node arena rooted at a workspace directory.
type Tree struct {
	rootPath string
	root     NodeID
	next     NodeID
	nodes    map[NodeID]*Node
}

func newTree(rootPath string) *Tree {
	t := &Tree{rootPath: rootPath, nodes: make(map[NodeID]*Node)}
	root := t.newNode(Folder, filepath.Base(rootPath))
	root.Expanded = true
	t.root = root.ID
	return t
}

func (t *Tree) newNode(kind Kind, name string) *Node {
	t.next++
	n := &Node{ID: t.next, Kind: kind, Name: name, loaded: kind == File}
	t.nodes[n.ID] = n
	return n
}

func (t *Tree) node(id NodeID) *Node {
	if t == nil {
		return nil
	}
	return t.nodes[id]
}

// add appends a new child at the end of parent's children.
func (t *Tree) add(parent NodeID, kind Kind, name string) *Node {
	n := t.newNode(kind, name)
	t.attach(n.ID, parent)
	return n
}

func (t *Tree) attach(id, parent NodeID) {
	n, p := t.nodes[id], t.nodes[parent]
	n.Parent = parent
	p.Children = append(p.Children, id)
}

func (t *Tree) detach(id NodeID) {
	n := t.nodes[id]
	p := t.nodes[n.Parent]
	if p != nil {
		for i, child := range p.Children {
			if child == id {
				p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
				break
			}
		}
	}
	n.Parent = NoNode
}

// remove detaches id and drops its whole subtree from the arena.
func (t *Tree) remove(id NodeID) {
	if t.nodes[id] == nil {
		return
	}
	t.detach(id)
	t.drop(id)
}

func (t *Tree) drop(id NodeID) {
	n := t.nodes[id]
	for _, child := range n.Children {
		t.drop(child)
	}
	delete(t.nodes, id)
}

func (t *Tree) path(id NodeID) string {
	if id == t.root {
		return t.rootPath
	}
	var parts []string
	for n := t.nodes[id]; n != nil && n.ID != t.root; n = t.nodes[n.Parent] {
		parts = append(parts, n.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return filepath.Join(append([]string{t.rootPath}, parts...)...)
}

func (t *Tree) child(parent NodeID, name string) *Node {
	p := t.nodes[parent]
	if p == nil {
		return nil
	}
	for _, id := range p.Children {
		if c := t.nodes[id]; c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// deepest walks rel components from the root without loading anything and
// returns the deepest node reached and whether it matched rel exactly.
func (t *Tree) deepest(rel string) (*Node, bool) {
	n := t.nodes[t.root]
	if rel == "." || rel == "" {
		return n, true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		c := t.child(n.ID, part)
		if c == nil {
			return n, false
		}
		n = c
	}
	return n, true
}

// sortEntries orders a listing folders first, then by case-insensitive name.
func sortEntries(entries []DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isWithin reports whether p equals base or lies below it, comparing whole
// path components.
func isWithin(p, base string) bool {
	if p == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// topmost drops every path that lies within another path of the selection,
// keeping the survivors in selection order without duplicates.
func topmost(paths []string) []string {
	var out []string
	for i, p := range paths {
		covered := false
		for j, q := range paths {
			if i == j {
				continue
			}
			if p == q {
				if j < i {
					covered = true
					break
				}
				continue
			}
			if isWithin(p, q) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}
