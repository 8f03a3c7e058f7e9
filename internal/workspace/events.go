package workspace

import "github.com/bekirdag/workbench/internal/fsevent"

// Event is the closed set of notifications a Model emits. Notifications are
// delivered synchronously on the caller's control context.
type Event interface {
	isWorkspaceEvent()
}

// NodeInvalidated asks the presentation layer to refresh whatever shows Path.
type NodeInvalidated struct {
	Path string
	Op   fsevent.Operation
}

// EditingTargetDisappeared fires once when the entry open for editing was
// moved away or deleted.
type EditingTargetDisappeared struct {
	Path string
}

// EditingTargetMoved fires when a rename or move issued through the model
// carried the editing target to a new path.
type EditingTargetMoved struct {
	From, To string
}

// WorkspaceRootDisappeared fires once when the root directory is gone or was
// replaced. The model is closed afterwards.
type WorkspaceRootDisappeared struct {
	Root string
	Err  error
}

// StructureChanged fires after a structural edit under Path completed.
type StructureChanged struct {
	Path string
}

func (NodeInvalidated) isWorkspaceEvent()          {}
func (EditingTargetDisappeared) isWorkspaceEvent() {}
func (EditingTargetMoved) isWorkspaceEvent()       {}
func (WorkspaceRootDisappeared) isWorkspaceEvent() {}
func (StructureChanged) isWorkspaceEvent()         {}

// Notifier receives model events.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) {
	if f != nil {
		f(ev)
	}
}
