// Package task implements a cooperative user-space task runtime: lightweight
// threads of control ("tasks") that run atop a caller-supplied Executor,
// suspend on asynchronous events via Await, sleep on timers, wake, join,
// yield to peers, and can be introspected at runtime via BacktraceAll.
//
// A Task is backed by its own goroutine (its stackful continuation, see
// continuation.go) and coordinated through a single atomic state word (see
// state.go) shared between the task, its wakers, sleep-timer callbacks, and
// introspection callers. The runtime does not own threads or goroutines of
// its own beyond one per live Task; all actual execution is driven by the
// Executor the Task was constructed with.
package task

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
)

// Task is a user-space thread of control with its own stack (goroutine),
// scheduled cooperatively atop an Executor (spec §3).
type Task struct {
	id       int32
	name     string
	executor Executor
	priority atomic.Int32

	state atomic.Uint32

	self        continuation
	selfValid   bool
	parent      continuation
	parentValid bool

	deadlineTimer Timer

	stackTraceBuf string

	completionHandlers []func()
	done               *donePromise

	debugInfo *DebugInfoFrame
	depth     int

	hook registryHook

	logger  Logger
	metrics MetricsHook
}

// New constructs a Task that runs body on ex, immediately transitioning it
// to runnable (spec §4.9: "the constructor links the task into the global
// list and issues handle_event(Suspended)"). body runs until it returns or
// panics; a panic is recovered, logged, and the task terminates normally
// (spec §7).
func New(ex Executor, body func(), opts ...TaskOption) *Task {
	cfg := resolveTaskOptions(opts)

	t := &Task{
		id:       nextTaskID(),
		name:     cfg.name,
		executor: ex,
		done:     newDonePromise(),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}
	t.priority.Store(cfg.priority)
	t.state.Store(suspended)

	workGuard := ex.WorkGuard()

	t.self = callcc(func(parent continuation) {
		defer workGuard.Release()

		t.preEntry(parent)

		func() {
			defer func() {
				if r := recover(); r != nil {
					perr := &PanicError{TaskName: t.name, Value: r, Stack: debug.Stack()}
					t.logBodyPanic(perr)
				}
			}()
			body()
		}()

		t.postExit()
	})
	t.selfValid = true

	registryMu.Lock()
	registryLinkLocked(t)
	registryMu.Unlock()

	t.metrics.TaskSpawned(t.id, t.name, t.Priority())

	t.handleEvent(suspended)

	return t
}

var taskIDCounter atomic.Int32

func nextTaskID() int32 {
	return taskIDCounter.Add(1)
}

// ID returns t's stable, monotonically assigned identity.
func (t *Task) ID() int32 { return t.id }

// Name returns t's human-readable name.
func (t *Task) Name() string { return t.name }

// Priority returns t's current advisory priority.
func (t *Task) Priority() Priority { return t.priority.Load() }

// SetPriority sets t's advisory priority.
func (t *Task) SetPriority(p Priority) { t.priority.Store(p) }

// Executor returns the Executor t was constructed with.
func (t *Task) Executor() Executor { return t.executor }

// StackPos returns the logical depth token recorded in preEntry, standing
// in for the raw stack-pointer arithmetic `Task::stack_pos()` performs in
// the original design (Go does not expose a stack pointer to user code;
// see DESIGN.md's Open Question decision). preEntry always records 0, so
// the value is 0 for every task and carries no depth information.
func (t *Task) StackPos() int { return t.depth }

// Current returns the Task running on the calling goroutine, or nil if
// none (spec §6: `Task::current`).
func Current() *Task {
	return currentLocal().currentTask
}

// CurrentPriority returns Current()'s priority, or DefaultPriority if no
// task is current (spec §4.5's `current_priority`).
func CurrentPriority() Priority {
	if t := Current(); t != nil {
		return t.Priority()
	}
	return DefaultPriority
}

// Yield suspends the calling Task and reschedules it through
// handleEvent(suspended), the same path as any other activation. Because
// scheduleToRun may Dispatch the resumption inline (for example on a
// Loop's own goroutine below the nesting cap), other ready work on the
// executor is not guaranteed to run before the task resumes. Outside of a
// Task it yields the OS thread (spec §6: `Task::yield`).
func Yield() {
	if t := Current(); t != nil {
		t.yieldImpl()
		return
	}
	runtime.Gosched()
}

// preEntry runs at the very start of a Task's goroutine: it captures the
// parent continuation (handing control back to New's caller), records
// the initial logical depth and binds t as Current() for its own
// goroutine, then blocks until New's constructor resumes it via
// scheduleToRun/run (spec §4.3).
func (t *Task) preEntry(parent continuation) {
	t.parent = parent
	t.parentValid = true
	t.depth = 0
	currentLocal().currentTask = t

	t.parent = t.parent.resume()
}

// postExit drains t's completion handlers and terminates it. The handler
// list is moved out under completionHandlersLock, then Terminated is set
// and the join promise fulfilled, and only then are the moved-out handlers
// invoked, so a handler that calls t.Join() observes an already-settled
// promise (spec §4.7).
func (t *Task) postExit() {
	spinLock(&t.state, completionHandlersLock)
	localHandlers := t.completionHandlers
	t.completionHandlers = nil
	spinUnlock(&t.state, completionHandlersLock)

	parent := t.parent
	t.parentValid = false

	t.handleEvent(terminated)
	t.done.Fulfill()
	t.metrics.TaskTerminated(t.id, t.name)

	for _, h := range localHandlers {
		h()
	}

	t.selfValid = false
	parent.yieldOnce()
}

// yieldImpl suspends the task, resuming its parent continuation, and
// loops collecting a stack trace on each resumption until the StackTrace
// bit is no longer set (spec §4.3: "yield_impl... checks the StackTrace
// bit — if set, it records a stack trace and yields again").
func (t *Task) yieldImpl() {
	if !t.parentValid {
		panic(&Violation{Op: "yieldImpl", State: stateBitsString(state(t.state.Load())), Msg: "no parent continuation to yield to"})
	}

	for {
		t.parent = t.parent.resume()

		if t.state.Load()&stackTrace != 0 {
			var buf [8192]byte
			n := runtime.Stack(buf[:], false)
			t.stackTraceBuf = string(buf[:n])
			continue
		}
		break
	}

	if Current() != t {
		panic(&Violation{Op: "yieldImpl", State: stateBitsString(state(t.state.Load())), Msg: "resumed with wrong current task"})
	}
}

// handleEvent ORs eventMask into t's state and reacts: if the resulting
// state is ready, it schedules t to run; if terminal, it fulfils t's join
// promise. eventMask must be exactly one of haveSignal, suspended, or
// terminated (spec §4.4).
func (t *Task) handleEvent(eventMask state) {
	newState := t.state.Or(eventMask) | eventMask

	if isReadyState(newState) {
		t.scheduleToRun(newState, false)
	} else if isTerminalState(newState) {
		// Nothing may follow this call: t may be concurrently destroyed
		// the instant another goroutine observes the fulfilled promise.
		t.done.Fulfill()
	}
}

// scheduleToRun attempts to transition t from ready to running, clearing
// suspended, needSignal, and haveSignal in one CAS. On success it submits
// t.run to its executor: via Dispatch if the calling goroutine's nesting
// depth is below maxNestingDepth and forcePost is false, otherwise via
// Post (spec §4.4).
func (t *Task) scheduleToRun(observed state, forcePost bool) {
	for {
		if !isReadyState(observed) {
			return
		}
		target := observed &^ (suspended | needSignal | haveSignal)
		if t.state.CompareAndSwap(observed, target) {
			break
		}
		observed = t.state.Load()
	}

	local := currentLocal()
	t.metrics.NestingDepthObserved(local.nestingDepth)

	// A task whose own goroutine is still actively running cannot safely
	// resume itself inline: resumeImpl's handoff below requires a
	// goroutine already parked on the continuation's channel, and t's own
	// goroutine would be busy here, not parked. Forcing Post in that case
	// defers the resume until control reaches yieldImpl's park point. A
	// synchronously-fulfilled Await does not get this far: suspended is
	// clear while the task runs, so handleEvent(haveSignal) sees a
	// non-ready state and the resume comes later from run's
	// handleEvent(suspended).
	selfReentrant := local.currentTask == t

	if local.nestingDepth < maxNestingDepth && !forcePost && !selfReentrant {
		t.executor.Dispatch(func() {
			// Dispatch is free to run fn on a goroutine other than the one
			// that called scheduleToRun; currentLocal() must therefore be
			// re-resolved here rather than closing over local, so the
			// increment/decrement always lands on the goroutine actually
			// about to run t.run and never races another goroutine's
			// mutation of the same *goroutineLocal.
			execLocal := currentLocal()
			execLocal.nestingDepth++
			defer func() { execLocal.nestingDepth-- }()
			t.run()
		})
	} else {
		t.executor.Post(t.run)
	}
}

// run is the activation closure scheduleToRun submits to the executor. It
// performs the sleepTimerLock handoff (spec §4.2), resumes the task, then
// reverses the handoff and feeds handleEvent(suspended) back into the
// state machine (spec §4.4).
func (t *Task) run() {
	observed := t.state.Load()
	if observed&sleepTimerLockSuspend != 0 {
		for {
			if observed&sleepTimerLock != 0 {
				observed = t.state.Load()
				continue
			}
			target := (observed &^ sleepTimerLockSuspend) | sleepTimerLock
			if t.state.CompareAndSwap(observed, target) {
				break
			}
			observed = t.state.Load()
		}
	}

	t.resumeImpl()

	observed = t.state.Load()
	if observed&sleepTimerLock != 0 {
		for {
			target := (observed &^ sleepTimerLock) | sleepTimerLockSuspend
			if t.state.CompareAndSwap(observed, target) {
				break
			}
			observed = t.state.Load()
		}
	}

	t.handleEvent(suspended)
}

// resumeImpl switches the calling goroutine's notion of "current task" to
// t, resumes t's own continuation, and restores the prior current task on
// return. It is not reentrant: a task cannot resume itself (spec §4.3).
func (t *Task) resumeImpl() {
	if !t.selfValid {
		panic(&Violation{Op: "resumeImpl", State: stateBitsString(state(t.state.Load())), Msg: "resume of a task with no live continuation"})
	}

	local := currentLocal()
	saved := local.currentTask
	if saved == t {
		panic(&Violation{Op: "resumeImpl", State: stateBitsString(state(t.state.Load())), Msg: "task attempted to resume itself"})
	}
	local.currentTask = t
	defer func() { local.currentTask = saved }()

	t.self = t.self.resume()
}

// destroy unlinks t from the global registry. It asserts t is in a
// terminal state, matching ~Task()'s invariants (spec §4.9): both
// continuations empty, state terminal. destroy is the only place a Task
// is removed from the registry, and nothing else in this package calls
// it, so a terminated Task stays linked (and counted by BacktraceAll)
// until destroy runs.
func (t *Task) destroy() {
	if t.selfValid || t.parentValid {
		panic(&Violation{Op: "destroy", State: stateBitsString(state(t.state.Load())), Msg: "destroying a task with a live continuation"})
	}
	if !isTerminalState(t.state.Load()) {
		panic(&Violation{Op: "destroy", State: stateBitsString(state(t.state.Load())), Msg: "destroying a non-terminal task"})
	}
	registryMu.Lock()
	registryUnlinkLocked(t)
	registryMu.Unlock()
}

// String implements fmt.Stringer for diagnostic output.
func (t *Task) String() string {
	return fmt.Sprintf("Task{id=%d, name=%q, state=%s}", t.id, t.name, stateBitsString(state(t.state.Load())))
}
