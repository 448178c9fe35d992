package task

// state is the atomic bitset carrying a Task's lifecycle flags plus the
// short spin-lock bits that protect its auxiliary fields. It is the sole
// lock-free coordination point between a task, its wakers, and
// introspection callers.
type state = uint32

// Bit layout, least significant first. All other bits are reserved and
// must read as zero.
const (
	// needSignal is set when code within the task has requested a signal
	// because it is awaiting an external asynchronous event.
	needSignal state = 1 << iota

	// haveSignal is set when the handler produced by an await is invoked.
	haveSignal

	// suspended is set when the task is not currently executing on any
	// thread.
	suspended

	// terminated indicates the task has finished running its body. Once
	// set it is never cleared.
	terminated

	// stackTrace requests that the task collect a stack trace the next
	// time it resumes, via yieldImpl.
	stackTrace

	// sleepTimerLock is a spin-lock bit serializing access to the task's
	// deadline timer.
	sleepTimerLock

	// completionHandlersLock is a spin-lock bit serializing access to the
	// task's completion-handler list.
	completionHandlersLock

	// sleepTimerLockSuspend records that sleepTimerLock was held at the
	// moment the task suspended, so run can re-acquire it as
	// sleepTimerLock on resumption without ever suspending while a lock
	// bit is actually held.
	sleepTimerLockSuspend
)

// numStateFlags is the number of flag bits defined above.
const numStateFlags = 8

// maxNestingDepth bounds recursive synchronous activation through
// scheduleToRun's dispatch path; beyond it, post is used instead.
const maxNestingDepth = 8

// isRunningState reports whether s represents a task currently executing
// on some thread.
func isRunningState(s state) bool {
	return s&suspended == 0
}

// isReadyState reports whether s represents a task that is suspended but
// eligible to be resumed: not terminated, not mid stack-trace collection,
// and with (needSignal, haveSignal) in {(0,0), (1,1)}. The combination
// (0,1) must never be observed; is it not "ready" by this definition
// because no code should ever be able to raise haveSignal without a prior
// needSignal (see the double-signal check in awaitImplGeneric).
func isReadyState(s state) bool {
	if s&(suspended|terminated) != suspended {
		return false
	}
	if s&stackTrace != 0 {
		return false
	}
	signalBits := s & (needSignal | haveSignal)
	return signalBits == 0 || signalBits == (needSignal|haveSignal)
}

// isTerminalState reports whether s represents a fully terminated task:
// both suspended and terminated are set.
func isTerminalState(s state) bool {
	return s&(suspended|terminated) == suspended|terminated
}
