// Package executor provides concrete implementations of the task
// package's Executor collaborator interface: a single-goroutine run loop
// (Loop) grounded on this codebase's event-loop design (the same
// dispatch-if-on-loop-thread-else-post split, the same goroutine-id based
// isLoopThread check, and a plain slice task queue under a mutex), and
// a zero-overhead Inline executor for synchronous tests and examples.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	task "github.com/joeycumines/go-stacktask"
)

// Loop is a single-goroutine Executor: every Dispatch/Post callback, and
// every Timer's expiry callback, runs serialized on the one goroutine
// started by Run. Dispatch runs its callback synchronously when called
// from that goroutine (mirroring the eventloop package's isLoopThread
// fast path) and falls back to Post otherwise.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	workRef int

	loopGoroutineID uint64
	hasLoopID       bool
}

// NewLoop constructs a Loop. Call Run to start processing; Run blocks
// until ctx is cancelled and the queue has drained.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes l's queue-processing loop on the calling goroutine until
// ctx is cancelled. It is not safe to call Run from more than one
// goroutine, nor to call it more than once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.loopGoroutineID = getGoroutineID()
	l.hasLoopID = true
	l.mu.Unlock()

	defer close(l.done)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		select {
		case <-ctx.Done():
			l.drainRemaining()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// drainRemaining runs any callbacks queued up to the point Run observes
// ctx.Done, so WorkGuard holders and in-flight Post callbacks aren't
// silently dropped on shutdown.
func (l *Loop) drainRemaining() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// isLoopThread reports whether the calling goroutine is l's Run
// goroutine, the same technique the package's goroutine-local state uses
// (see goroutinelocal.go: parsing "goroutine N [...]" out of a stack
// trace header, since Go exposes no native thread-local storage).
func (l *Loop) isLoopThread() bool {
	l.mu.Lock()
	id, ok := l.loopGoroutineID, l.hasLoopID
	l.mu.Unlock()
	return ok && id == getGoroutineID()
}

func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// Dispatch implements task.Executor: it runs fn synchronously if called
// from l's own Run goroutine, otherwise it behaves exactly like Post.
func (l *Loop) Dispatch(fn func()) {
	if l.isLoopThread() {
		fn()
		return
	}
	l.Post(fn)
}

// Post implements task.Executor: fn is always queued to run on a future
// iteration of l's Run loop, never synchronously inline.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// NewTimer returns a Timer whose expiry callback is delivered via l.Post,
// so it always runs serialized with every other callback on this Loop.
func (l *Loop) NewTimer() task.Timer {
	return &loopTimer{loop: l}
}

// WorkGuard returns a handle that, while held, is purely advisory for
// this implementation: Loop's Run already keeps running until ctx is
// cancelled regardless of outstanding guards. The guard exists so Task's
// constructor (which acquires one for the lifetime of the task's
// goroutine, mirroring boost::asio::make_work_guard) has a real object to
// hold and release.
func (l *Loop) WorkGuard() task.WorkGuard {
	l.mu.Lock()
	l.workRef++
	l.mu.Unlock()
	return &loopWorkGuard{loop: l}
}

type loopWorkGuard struct {
	loop     *Loop
	mu       sync.Mutex
	released bool
}

func (g *loopWorkGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	g.loop.mu.Lock()
	g.loop.workRef--
	g.loop.mu.Unlock()
}

// loopTimer is a task.Timer whose callbacks are always delivered through
// its owning Loop's Post, so concurrent timer expiry never races with
// other work scheduled on the same Loop.
type loopTimer struct {
	loop *Loop

	mu      sync.Mutex
	timer   *time.Timer
	handler func(error)
	gen     int
}

var errTimerCancelled = fmt.Errorf("executor: timer cancelled")

func (t *loopTimer) ExpiresFromNow(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.loop.Post(func() { t.fire(gen, nil) })
	})
}

func (t *loopTimer) AsyncWait(handler func(error)) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

func (t *loopTimer) fire(gen int, err error) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	handler := t.handler
	t.handler = nil
	t.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

func (t *loopTimer) Cancel() error {
	t.mu.Lock()
	if t.timer == nil {
		t.mu.Unlock()
		return fmt.Errorf("executor: no pending timer")
	}
	stopped := t.timer.Stop()
	gen := t.gen
	t.mu.Unlock()

	if !stopped {
		return fmt.Errorf("executor: timer already fired")
	}

	t.loop.Post(func() { t.fire(gen, errTimerCancelled) })
	return nil
}
