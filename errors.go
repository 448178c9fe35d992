package task

// This file provides error types for the two failure modes that a
// cooperative task runtime distinguishes: exceptions escaping a task's
// body (caught, logged, and swallowed) and protocol violations (fatal,
// since they indicate a bug in the runtime itself or in a caller's use of
// it).

import (
	"errors"
	"fmt"
)

// PanicError wraps a value recovered from a Task body's panic, along with
// the task's name and the stack at the point of recovery. Unlike a
// protocol Violation, a PanicError never escapes the package: it is logged
// by the body wrapper and the task terminates normally (spec §7,
// "Body exceptions").
type PanicError struct {
	TaskName string
	Value    any
	Stack    []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task %q body panicked: %v", e.TaskName, e.Value)
}

// Unwrap returns the recovered value if it is itself an error, enabling
// errors.Is/errors.As to see through to the original cause.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Violation is a fatal protocol error: a double-signal, a suspend while
// holding completionHandlersLock, destruction of a non-terminal task, or
// similar misuse the spec requires be detected and treated as a
// programming error (spec §7, "Protocol violations"). Reference
// implementations of the violation handler abort with a state dump; this
// package instead panics with a Violation, which a caller's recover (if
// any) can inspect via errors.As.
type Violation struct {
	Op    string
	State string
	Msg   string
}

func (e *Violation) Error() string {
	return fmt.Sprintf("task: protocol violation in %s: %s (state=%s)", e.Op, e.Msg, e.State)
}

// errNotDumpable names the condition in which try_dump_stack_trace's
// preconditions aren't met. Spec §7 classifies this as "not an error" from
// the caller's point of view; tryDumpStackTrace reports it through its
// bool result and does not return this value.
var errNotDumpable = errors.New("task: not in a dump-eligible state")
