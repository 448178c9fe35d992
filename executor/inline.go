package executor

import (
	"fmt"
	"sync"
	"time"

	task "github.com/joeycumines/go-stacktask"
)

// Inline is a zero-dependency Executor that runs every Dispatch and Post
// callback synchronously, on the calling goroutine, the instant it is
// submitted. It has no run loop of its own to start or stop, making it
// convenient for unit tests and small examples that don't need real
// asynchrony — timers still use real wall-clock time via time.AfterFunc,
// but their expiry callback is delivered inline on whatever goroutine the
// standard library's timer fires it on.
type Inline struct{}

// NewInline constructs an Inline executor.
func NewInline() *Inline { return &Inline{} }

// Dispatch runs fn immediately.
func (Inline) Dispatch(fn func()) { fn() }

// Post runs fn immediately; Inline makes no synchronous/asynchronous
// distinction.
func (Inline) Post(fn func()) { fn() }

// NewTimer returns a Timer backed directly by time.AfterFunc.
func (Inline) NewTimer() task.Timer { return &inlineTimer{} }

// WorkGuard returns a no-op guard; Inline has no lifecycle to keep alive.
func (Inline) WorkGuard() task.WorkGuard { return inlineWorkGuard{} }

type inlineWorkGuard struct{}

func (inlineWorkGuard) Release() {}

type inlineTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	handler func(error)
	gen     int
}

func (t *inlineTimer) ExpiresFromNow(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() { t.fire(gen, nil) })
}

func (t *inlineTimer) AsyncWait(handler func(error)) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

func (t *inlineTimer) fire(gen int, err error) {
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

func (t *inlineTimer) Cancel() error {
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

	t.fire(gen, fmt.Errorf("executor: timer cancelled"))
	return nil
}
