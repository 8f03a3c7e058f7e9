package fsevent

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		flags Flag
		want  Operation
	}{
		{"removed", FlagRemoved, Delete},
		{"created", FlagCreated, Create},
		{"renamed", FlagRenamed, Move},
		{"modified", FlagModified, Modify},
		{"removed beats created", FlagCreated | FlagRemoved, Delete},
		{"created beats renamed", FlagCreated | FlagRenamed, Create},
		{"renamed beats modified", FlagRenamed | FlagModified, Move},
		{"meta only", FlagInodeMetaMod, Unclassified},
		{"kind only", FlagIsDir, Unclassified},
		{"empty", 0, Unclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.flags); got != tc.want {
				t.Fatalf("Classify(%s) = %s, want %s", tc.flags, got, tc.want)
			}
		})
	}
}

func TestNewEventCarriesKind(t *testing.T) {
	ev := NewEvent("/w/src", FlagCreated|FlagIsDir)
	if !ev.IsDir || ev.Op != Create {
		t.Fatalf("unexpected event %+v", ev)
	}
	ev = NewEvent("/w/a.txt", FlagModified|FlagIsFile)
	if ev.IsDir || ev.Op != Modify {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTranslateFsnotifyOps(t *testing.T) {
	cases := []struct {
		op    fsnotify.Op
		isDir bool
		want  Operation
	}{
		{fsnotify.Create, false, Create},
		{fsnotify.Write, false, Modify},
		{fsnotify.Remove, true, Delete},
		{fsnotify.Rename, false, Move},
		{fsnotify.Chmod, false, Unclassified},
	}
	for _, tc := range cases {
		flags := translate(tc.op, tc.isDir)
		if got := Classify(flags); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.op, got, tc.want)
		}
		if flags.Has(FlagIsDir) != tc.isDir {
			t.Fatalf("%s: dir flag mismatch in %s", tc.op, flags)
		}
	}
}

func TestFlagString(t *testing.T) {
	if got := (FlagCreated | FlagIsDir).String(); got != "created|dir" {
		t.Fatalf("unexpected flag string %q", got)
	}
	if got := Flag(0).String(); got != "none" {
		t.Fatalf("unexpected empty flag string %q", got)
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden("/w/.git") || IsHidden("/w/src") || IsHidden(".") {
		t.Fatalf("unexpected hidden classification")
	}
}
