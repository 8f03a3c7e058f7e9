package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// SidecarDir holds per-workspace metadata. Hidden entries are never
	// part of the tree, so the sidecar does not show up as a node.
	SidecarDir  = ".workbench"
	SidecarFile = "workspace.yaml"

	snapshotVersion = 1
)

// Entry is the persisted state of one node, keyed by root-relative path.
type Entry struct {
	Path     string `yaml:"path"`
	Folder   bool   `yaml:"folder,omitempty"`
	Expanded bool   `yaml:"expanded,omitempty"`
}

// Snapshot is the persisted node set of a workspace.
type Snapshot struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Expanded returns the expand flags keyed by root-relative path.
func (s Snapshot) Expanded() map[string]bool {
	out := make(map[string]bool, len(s.Entries))
	for _, entry := range s.Entries {
		out[entry.Path] = entry.Expanded
	}
	return out
}

// ConfigStore reads and writes a workspace's sidecar metadata. Read returns a
// nil snapshot when the workspace has none yet.
type ConfigStore interface {
	Read(root string) (*Snapshot, error)
	Write(root string, snap Snapshot) error
}

// SidecarPath returns the metadata file location for root.
func SidecarPath(root string) string {
	return filepath.Join(root, SidecarDir, SidecarFile)
}

// TrashPath returns where deleted entries of root are kept.
func TrashPath(root string) string {
	return filepath.Join(root, SidecarDir, "trash")
}

// YAMLStore keeps the sidecar as a yaml document.
type YAMLStore struct{}

func (YAMLStore) Read(root string) (*Snapshot, error) {
	data, err := os.ReadFile(SidecarPath(root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SidecarPath(root), err)
	}
	return &snap, nil
}

func (YAMLStore) Write(root string, snap Snapshot) error {
	if snap.Version == 0 {
		snap.Version = snapshotVersion
	}
	path := SidecarPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
