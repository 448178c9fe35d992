package task

import (
	"runtime"
	"sync/atomic"
)

// spinLock acquires the given lock bit (sleepTimerLock or
// completionHandlersLock) on word, looping with a cooperative yield until
// the prior value observed the bit clear. Locks acquired this way are not
// reentrant: a task must never call spinLock for a bit it already holds.
func spinLock(word *atomic.Uint32, bit state) (priorState state) {
	if prior, ok := trySpinLock(word, bit); ok {
		return prior
	}
	for {
		runtime.Gosched()
		if prior, ok := trySpinLock(word, bit); ok {
			return prior
		}
	}
}

// trySpinLock attempts to acquire bit a single time, returning the prior
// state and whether the acquisition succeeded (the bit was previously
// clear).
func trySpinLock(word *atomic.Uint32, bit state) (priorState state, acquired bool) {
	prior := word.Or(bit)
	return prior, prior&bit == 0
}

// spinUnlock releases bit on word. The caller must currently hold the lock
// acquired via spinLock/trySpinLock.
func spinUnlock(word *atomic.Uint32, bit state) {
	word.And(^bit)
}
