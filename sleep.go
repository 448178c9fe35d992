package task

import "time"

// Sleep suspends the calling Task (or blocks the calling OS thread, if no
// Task is current) for duration d, returning an error if the sleep was
// cancelled early via Wake (spec §4.6).
func Sleep(d time.Duration) error {
	if t := Current(); t != nil {
		return t.sleepImpl(d)
	}
	time.Sleep(d)
	return nil
}

// sleepImpl lazily creates t's deadline timer, arms it for d, and awaits
// its completion exactly like awaitImpl's generic bridge — the
// sleepTimerLock handoff across the suspension point is handled entirely
// by run (spec §4.2), not here.
func (t *Task) sleepImpl(d time.Duration) error {
	spinLock(&t.state, sleepTimerLock)
	defer spinUnlock(&t.state, sleepTimerLock)

	if t.deadlineTimer == nil {
		t.deadlineTimer = t.executor.NewTimer()
	}
	t.deadlineTimer.ExpiresFromNow(d)

	return awaitImplGeneric(t, func(deliver func(error)) {
		t.deadlineTimer.AsyncWait(deliver)
	})
}

// Wake cancels target's sleep timer, if any, from any goroutine. It
// returns true iff a timer was armed and successfully cancelled; it
// returns false if target isn't currently sleeping, or its timer already
// fired (spec §4.6, testable property 6: "wake returns true at most once
// per sleep").
func Wake(target *Task) bool {
	spinLock(&target.state, sleepTimerLock)
	defer spinUnlock(&target.state, sleepTimerLock)

	if target.deadlineTimer == nil {
		return false
	}
	return target.deadlineTimer.Cancel() == nil
}

// Wake is also exposed as an instance method for symmetry with the
// spec's `Task::wake()` (spec §6).
func (t *Task) Wake() bool {
	return Wake(t)
}
