package task

// continuation realizes the stackful-coroutine primitive that spec §4.3 and
// the design notes (§9, "Stackful coroutines are assumed from the
// platform") treat as externally provided. In Go, a goroutine already owns
// an independently growable stack, so a goroutine parked on a channel
// receive *is* a suspended stackful continuation; this file turns that
// observation into the callcc/resume API the rest of the package is
// written against.
//
// A single continuation value models both directions of the handoff
// between a task's own stack and whatever context last resumed it (spec's
// self_/parent_ pair): wake carries control into one side, parked signals
// that side has yielded back. The two views into a pair are mirror images
// of each other, wired up once in callcc; because exactly one goroutine
// ever calls resume() on the "self" view (resume_impl, from whichever
// executor goroutine is currently driving the task) and exactly one
// goroutine ever calls resume() on the "parent" view (the task's own
// goroutine, from pre_entry/yieldImpl), the pair never needs to be
// re-derived on each hop the way a fully general symmetric-transfer
// continuation would.
type continuation struct {
	wake   chan struct{}
	parked chan struct{}
}

// valid reports whether c is bound to a live handoff pair. The zero
// continuation is invalid, matching the "convertible to bool for
// non-emptiness" contract of spec §6.
func (c continuation) valid() bool {
	return c.wake != nil
}

// resume transfers control to the other side of the pair and blocks until
// it yields back (by calling resume on its own view of the pair) or its
// entry function returns. It mirrors Continuation::resume() -> Continuation;
// the returned value is always c itself, since this realization reuses one
// fixed pair of channels for the task's entire lifetime (see the
// continuation type's doc above).
func (c continuation) resume() continuation {
	c.wake <- struct{}{}
	<-c.parked
	return c
}

// yieldOnce signals the other side of the pair that this side has parked,
// without itself waiting to be resumed again. It is used exactly once per
// task, by postExit's final handoff back to whoever last called resume on
// the task's self continuation, after which the task's goroutine returns
// and the pair is retired.
func (c continuation) yieldOnce() {
	c.wake <- struct{}{}
}

// callcc starts entry on a new goroutine — the task's own stack — passing
// it the "parent" view of a freshly created continuation pair. entry must
// call parent.resume() (directly, or indirectly via yieldImpl) to hand
// control back to callcc's caller; callcc blocks until that first handoff
// happens and returns the "self" view, bound to the new goroutine, which
// the caller uses to resume the task later.
func callcc(entry func(parent continuation)) continuation {
	pair := continuation{wake: make(chan struct{}), parked: make(chan struct{})}
	selfView := pair
	parentView := continuation{wake: pair.parked, parked: pair.wake}

	go func() {
		entry(parentView)
	}()

	<-selfView.parked
	return selfView
}
