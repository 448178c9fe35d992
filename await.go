package task

import (
	"runtime"
	"sync/atomic"
)

// Await converts an async-style "pass me a completion handler" API into a
// synchronous return value, matching Task::await<R>(fn) (spec §4.5). fn is
// called synchronously, once, with a deliver callback; deliver must be
// invoked exactly once, either synchronously within fn or later from any
// goroutine, with the value Await should return.
//
// Go generics can't reconstruct an arbitrary R from a variadic argument
// pack the way the original `R{args...}` construction does; instead the
// handler directly produces the typed R value. This is the idiomatic Go
// rendering of the same bridge (see SPEC_FULL.md §0/§4).
func Await[R any](fn func(deliver func(R))) R {
	if t := Current(); t != nil {
		return awaitImplGeneric(t, fn)
	}
	return awaitOffTask(fn)
}

// AwaitFuture adapts a Future[T] (spec §4.5's `await(future_t<T>)`
// overload) by installing its AsyncWait as the async API passed to Await.
func AwaitFuture[T any](f Future[T]) T {
	return Await(func(deliver func(T)) {
		f.AsyncWait(deliver)
	})
}

// awaitImplGeneric is a free function (Go methods can't be generic) that
// performs the in-task await bridge described in spec §4.5 for task t.
func awaitImplGeneric[R any](t *Task, fn func(deliver func(R))) R {
	var result R

	prior := t.state.Or(needSignal)
	if prior&haveSignal != 0 {
		panic(&Violation{
			Op:    "await",
			State: stateBitsString(prior),
			Msg:   "haveSignal already set before needSignal was raised (double-signal)",
		})
	}

	fn(func(v R) {
		result = v
		t.handleEvent(haveSignal)
	})

	t.yieldImpl()

	return result
}

// awaitOffTask implements the off-task path: no Task is current on this
// goroutine, so the bridge blocks the calling OS thread instead of
// suspending a Task. It installs the handler, then busy-yields on an
// atomic "done" flag until the handler has run (spec §4.5, "Off-task
// path").
func awaitOffTask[R any](fn func(deliver func(R))) R {
	var result R
	var done atomic.Bool

	fn(func(v R) {
		result = v
		done.Store(true)
	})

	for !done.Load() {
		runtime.Gosched()
	}

	return result
}

// stateBitsString renders a state word for diagnostic messages, matching
// the bit order (needSignal..sleepTimerLockSuspend) spec §3 lays out.
func stateBitsString(s state) string {
	const names = "NSsTtLCU" // needSignal,haveSignal,Suspended,Terminated,sTacktrace,sleepTimerLock,CompletionLock,sleepTimerLockSUspend
	buf := make([]byte, numStateFlags)
	for i := 0; i < numStateFlags; i++ {
		if s&(1<<uint(i)) != 0 {
			buf[numStateFlags-1-i] = names[i]
		} else {
			buf[numStateFlags-1-i] = '.'
		}
	}
	return string(buf)
}
