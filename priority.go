package task

// Priority is advisory scheduling metadata (spec §3, §9 Open Question): it
// is stored and readable on every Task, but this package's reference
// Executor implementations do not consult it. Callers that want
// priority-based ordering must wire it into their own Executor.
type Priority = int32

// DefaultPriority is used for a Task spawned with no current task and no
// explicit priority.
const DefaultPriority Priority = 0

// priorityInherited is the increment applied to a parent task's priority
// when a child task doesn't specify one explicitly.
const priorityInherited Priority = 100

// InheritPriority computes the default priority for a task spawned while
// parent is executing: parent's priority plus 100, or DefaultPriority if
// parent is nil (spawned outside of any task).
func InheritPriority(parent *Task) Priority {
	if parent == nil {
		return DefaultPriority
	}
	return parent.Priority() + priorityInherited
}
