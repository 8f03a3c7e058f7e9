package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DirEntry is one directory listing entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem is the filesystem capability the model mutates through.
type FileSystem interface {
	ReadDir(path string) ([]DirEntry, error)
	Stat(path string) (fs.FileInfo, error)
	CreateFile(path string) error
	CreateDir(path string) error
	// Move renames from to to and fails if to already exists.
	Move(from, to string) error
	// Trash removes path through a recoverable delete.
	Trash(path string) error
	SameFile(a, b fs.FileInfo) bool
}

// OSFileSystem implements FileSystem on the local disk. Trashed entries are
// moved under TrashDir; with an empty TrashDir they are removed outright.
type OSFileSystem struct {
	TrashDir string
}

func (OSFileSystem) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(path, entry.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		out = append(out, DirEntry{Name: entry.Name(), IsDir: isDir})
	}
	return out, nil
}

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFileSystem) CreateFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (OSFileSystem) CreateDir(path string) error {
	return os.Mkdir(path, 0o755)
}

func (OSFileSystem) Move(from, to string) error {
	if _, err := os.Lstat(to); err == nil {
		return fs.ErrExist
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(from, to)
}

func (o OSFileSystem) Trash(path string) error {
	if o.TrashDir == "" {
		return os.RemoveAll(path)
	}
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	if err := os.MkdirAll(o.TrashDir, 0o755); err != nil {
		return fmt.Errorf("prepare trash: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	base := filepath.Base(path)
	for i := 0; ; i++ {
		name := stamp + "-" + base
		if i > 0 {
			name += "-" + strconv.Itoa(i)
		}
		dest := filepath.Join(o.TrashDir, name)
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		return os.Rename(path, dest)
	}
}

func (OSFileSystem) SameFile(a, b fs.FileInfo) bool {
	if a == nil || b == nil {
		return false
	}
	return os.SameFile(a, b)
}
