// Package fsevent defines filesystem change events and a watcher that
// delivers them in debounced batches.
package fsevent

import "strings"

// Flag is the raw capability bitmask reported for a change.
type Flag uint32

const (
	FlagCreated Flag = 1 << iota
	FlagRemoved
	FlagRenamed
	FlagModified
	FlagInodeMetaMod
	FlagIsDir
	FlagIsFile
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagCreated, "created"},
	{FlagRemoved, "removed"},
	{FlagRenamed, "renamed"},
	{FlagModified, "modified"},
	{FlagInodeMetaMod, "meta"},
	{FlagIsDir, "dir"},
	{FlagIsFile, "file"},
}

func (f Flag) Has(other Flag) bool { return f&other != 0 }

func (f Flag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Operation is the classified kind of change.
type Operation int

const (
	Unclassified Operation = iota
	Create
	Modify
	Move
	Delete
)

func (o Operation) String() string {
	switch o {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Move:
		return "move"
	case Delete:
		return "delete"
	default:
		return "unclassified"
	}
}

// Classify maps a flag set to one Operation. A single report may carry several
// flags; removal wins over creation, creation over rename, rename over
// modification. Anything else is Unclassified.
func Classify(f Flag) Operation {
	switch {
	case f.Has(FlagRemoved):
		return Delete
	case f.Has(FlagCreated):
		return Create
	case f.Has(FlagRenamed):
		return Move
	case f.Has(FlagModified):
		return Modify
	default:
		return Unclassified
	}
}

// Event is one change report for a path.
type Event struct {
	Path  string
	IsDir bool
	Flags Flag
	Op    Operation
}

// NewEvent builds an Event and classifies its flags.
func NewEvent(path string, flags Flag) Event {
	return Event{
		Path:  path,
		IsDir: flags.Has(FlagIsDir),
		Flags: flags,
		Op:    Classify(flags),
	}
}
