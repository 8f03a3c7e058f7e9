package workspace

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("workspace closed")
	ErrUnknownNode   = errors.New("unknown node")
	ErrNotFolder     = errors.New("not a folder")
	ErrRootOperation = errors.New("operation not allowed on the workspace root")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidMove   = errors.New("destination is inside the moved entry")
	ErrNameTaken     = errors.New("name already in use")
)

// FileSystemError reports a structural operation that failed, either at the
// OS layer or on a precondition checked before the OS was touched. The tree
// is never changed when one is returned.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("workspace: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// PartialDeleteError is returned when a multi-entry delete stopped part way.
// Deleted entries are already gone from the tree; Remaining ones are intact.
type PartialDeleteError struct {
	Deleted   []string
	Remaining []string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("workspace: deleted %d of %d entries: %v",
		len(e.Deleted), len(e.Deleted)+len(e.Remaining), e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }

// RootDisappearedError records why the workspace root was judged gone.
type RootDisappearedError struct {
	Root string
	Err  error
}

func (e *RootDisappearedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("workspace: root %s disappeared", e.Root)
	}
	return fmt.Sprintf("workspace: root %s disappeared: %v", e.Root, e.Err)
}

func (e *RootDisappearedError) Unwrap() error { return e.Err }

func fsError(op, path string, err error) error {
	return &FileSystemError{Op: op, Path: path, Err: err}
}
