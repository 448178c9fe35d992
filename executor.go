package task

import "time"

// Executor is the scheduling collaborator every Task runs on (spec §6).
// Implementations are expected to serialize callbacks delivered via
// Dispatch/Post onto some run loop or worker pool; this package places no
// constraint on concurrency beyond "callbacks submitted to the same
// Executor for the same Task never run concurrently with each other or
// with that Task's own goroutine" (guaranteed by the state machine, not by
// the Executor).
//
// See the executor subpackage for concrete implementations grounded on
// this pack's event-loop and worker-pool precedent.
type Executor interface {
	// Dispatch runs fn as soon as possible, synchronously if the calling
	// goroutine is already executing on behalf of this Executor and
	// nesting is acceptable, otherwise equivalently to Post. Task uses
	// Dispatch for its common-case rescheduling path (spec §4.4).
	Dispatch(fn func())

	// Post queues fn to run later, never synchronously inline with the
	// calling goroutine. Task falls back to Post once recursive Dispatch
	// nesting would exceed its cap (spec §4.4, §8 scenario 6).
	Post(fn func())

	// NewTimer creates a new, initially unarmed Timer bound to this
	// Executor (spec §4.6).
	NewTimer() Timer

	// WorkGuard returns a handle that keeps this Executor alive (e.g.
	// prevents a run loop from exiting for lack of work) until Released.
	// New acquires one for the lifetime of a Task's goroutine.
	WorkGuard() WorkGuard
}

// Timer is a single-shot, re-armable deadline timer (spec §6).
type Timer interface {
	// ExpiresFromNow arms (or re-arms) the timer to fire d from now,
	// implicitly cancelling any previously-scheduled, not-yet-fired
	// expiry.
	ExpiresFromNow(d time.Duration)

	// AsyncWait registers handler to be invoked, exactly once, when the
	// timer expires or is cancelled. handler receives a non-nil error
	// if the wait was cancelled rather than naturally expiring.
	AsyncWait(handler func(error))

	// Cancel cancels the timer's pending wait, if any, causing a
	// registered AsyncWait handler to be invoked with a non-nil error.
	// It returns nil if a pending wait was successfully cancelled, and a
	// non-nil error if the timer had already fired or had no pending
	// wait to cancel.
	Cancel() error
}

// WorkGuard keeps an Executor alive while held (spec §6).
type WorkGuard interface {
	// Release relinquishes the guard. Idempotent.
	Release()
}
