package task

import "sync"

// Future is a read-only one-shot value channel, the Go analogue of the
// spec's Future/Promise collaborator (spec §6): AsyncWait registers a
// handler to be invoked exactly once, with the settled value, either
// synchronously (if already settled) or from whatever goroutine settles
// it.
type Future[T any] interface {
	AsyncWait(handler func(T))
}

// donePromise is a one-shot promise of "none" (spec §3: "a one-shot
// completion promise (value type: none)"), used by Task for join. It is
// deliberately narrower than a general Promise[T]: the only thing a task
// ever needs to broadcast at termination is that it has terminated.
type donePromise struct {
	mu       sync.Mutex
	settled  bool
	waiters  []func()
}

func newDonePromise() *donePromise {
	return &donePromise{}
}

// Fulfill settles the promise, synchronously invoking every registered
// waiter in FIFO order. Calling Fulfill more than once is a no-op; the
// runtime calls it from postExit once Terminated is set, and again (as a
// no-op) from handleEvent when the task reaches its terminal state.
func (p *donePromise) Fulfill() {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, w := range waiters {
		w()
	}
}

// AsyncWait registers handler to be invoked once the promise settles. If
// it has already settled, handler is invoked immediately and
// synchronously on the calling goroutine, so an Await over a settled
// promise receives its value without waiting on another goroutine.
func (p *donePromise) AsyncWait(handler func(struct{})) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		handler(struct{}{})
		return
	}
	p.waiters = append(p.waiters, func() { handler(struct{}{}) })
	p.mu.Unlock()
}

// Join blocks the calling Task (or, if called outside of any Task, the
// calling OS thread) until t has terminated. It returns at once if t's
// Terminated bit is already set; otherwise it is implemented as
// Await/AwaitFuture over t's completion promise, exactly like
// Task::join()'s `await(get_future(this->promise_))` (spec §4.7).
func (t *Task) Join() {
	if t.state.Load()&terminated != 0 {
		return
	}
	Await(func(deliver func(struct{})) {
		t.done.AsyncWait(deliver)
	})
}

// CallWhenDone registers handler to run after t terminates. If t has
// already terminated, handler runs immediately and synchronously on the
// caller (spec §4.7, testable property 5); otherwise it is queued under
// t's completionHandlersLock and invoked, in FIFO order, from postExit —
// after the completion promise has been fulfilled, so a handler that
// itself calls t.Join() observes an already-settled promise and returns
// immediately.
func (t *Task) CallWhenDone(handler func()) {
	if t.state.Load()&terminated != 0 {
		handler()
		return
	}
	spinLock(&t.state, completionHandlersLock)
	t.completionHandlers = append(t.completionHandlers, handler)
	spinUnlock(&t.state, completionHandlersLock)
}
