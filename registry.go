package task

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// registryHook is the intrusive doubly-linked-list hook embedded in every
// Task (spec §3: "an intrusive hook into the global task list"). The list
// itself is protected by registryMu and mutated only on link (in the
// constructor) and unlink (in destroy).
type registryHook struct {
	prev, next *Task
}

var (
	registryMu   sync.Mutex
	registryHead *Task
)

// registryLinkLocked adds t to the front of the global task list. Must be called
// with registryMu held.
func registryLinkLocked(t *Task) {
	t.hook.next = registryHead
	t.hook.prev = nil
	if registryHead != nil {
		registryHead.hook.prev = t
	}
	registryHead = t
}

// registryUnlinkLocked removes t from the global task list. Must be called
// with registryMu held. Safe to call on an already-unlinked t.
func registryUnlinkLocked(t *Task) {
	if t.hook.prev != nil {
		t.hook.prev.hook.next = t.hook.next
	} else if registryHead == t {
		registryHead = t.hook.next
	}
	if t.hook.next != nil {
		t.hook.next.hook.prev = t.hook.prev
	}
	t.hook.prev, t.hook.next = nil, nil
}

// DebugInfoFrame is one frame of an intrusive per-goroutine debug-info
// stack (spec §4.8: "Debug-info frames form an intrusive per-thread
// linked list reachable from each task"). Application code pushes frames
// via PushDebugInfo/PopDebugInfo around logical units of work inside a
// Task's body; BacktraceAll prints the chain alongside the stack trace.
type DebugInfoFrame struct {
	parent  *DebugInfoFrame
	message string
}

// PushDebugInfo pushes a new debug frame onto the current Task's chain and
// returns it; pass the returned frame to PopDebugInfo to remove it. It is
// a no-op (returns nil) when called outside of a Task.
func PushDebugInfo(message string) *DebugInfoFrame {
	t := Current()
	if t == nil {
		return nil
	}
	frame := &DebugInfoFrame{parent: t.debugInfo, message: message}
	t.debugInfo = frame
	return frame
}

// PopDebugInfo removes frame from the current Task's debug-info chain. It
// is a no-op if frame is nil or the current chain's top isn't frame.
func PopDebugInfo(frame *DebugInfoFrame) {
	if frame == nil {
		return
	}
	t := Current()
	if t == nil || t.debugInfo != frame {
		return
	}
	t.debugInfo = frame.parent
}

func printDebugInfo(frame *DebugInfoFrame, out *strings.Builder) {
	for f := frame; f != nil; f = f.parent {
		out.WriteString("  ")
		out.WriteString(f.message)
		out.WriteByte('\n')
	}
}

// BacktraceAll dumps a best-effort stack trace and debug-info chain for
// every task in the registry (terminated tasks included, until destroy
// unlinks them) to w, followed by a count, mirroring
// Task::backtrace_all (spec §4.8). Tasks currently running are reported
// as "(running)" rather than dumped, since try_dump_stack_trace only
// succeeds on a suspended, non-ready, non-terminal task.
func BacktraceAll(w interface{ Write([]byte) (int, error) }) int {
	registryMu.Lock()
	defer registryMu.Unlock()

	var out strings.Builder
	count := 0
	for t := registryHead; t != nil; t = t.hook.next {
		fmt.Fprintf(&out, "-- Task{id=%d, name=%s} -------------\n", t.id, t.name)
		if trace, ok := t.tryDumpStackTrace(); ok {
			out.WriteString(trace)
			out.WriteByte('\n')
		} else {
			out.WriteString("(running)\n")
		}
		count++
	}
	fmt.Fprintf(&out, "%d Tasks are active\n", count)
	w.Write([]byte(out.String()))
	return count
}

// tryDumpStackTrace attempts to collect a stack trace from t, returning it
// (with any debug-info chain) and true on success. It fails (returns
// false) if t is running, ready-to-run, terminal, or already has a trace
// requested — exactly the states spec §4.8/§7 classify as "not an error,
// the caller prints (running)".
func (t *Task) tryDumpStackTrace() (string, bool) {
	observed := t.state.Load()
	for {
		if isRunningState(observed) || isReadyState(observed) || isTerminalState(observed) || observed&stackTrace != 0 {
			return "", false
		}
		target := observed | stackTrace
		if t.state.CompareAndSwap(observed, target) {
			break
		}
		observed = t.state.Load()
	}

	var out strings.Builder
	fmt.Fprintf(&out, "(suspended) state=%032b\n", t.state.Load())
	if t.debugInfo != nil {
		out.WriteString("DEBUG:\n")
		printDebugInfo(t.debugInfo, &out)
	}

	t.resumeImpl()

	out.WriteString(t.stackTraceBuf)
	t.stackTraceBuf = ""

	after := clearBit(&t.state, stackTrace)
	t.scheduleToRun(after, true)

	return out.String(), true
}

// clearBit atomically clears bit in word and returns the resulting value.
func clearBit(word *atomic.Uint32, bit state) state {
	return word.And(^bit) &^ bit
}
