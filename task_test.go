package task_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	task "github.com/joeycumines/go-stacktask"
	"github.com/joeycumines/go-stacktask/executor"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) *executor.Loop {
	t.Helper()
	loop := executor.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)
	return loop
}

func TestNew_RunsBodyAndTerminates(t *testing.T) {
	loop := newTestLoop(t)

	var ran atomic.Bool
	tk := task.New(loop, func() {
		ran.Store(true)
	}, task.WithName("simple"))

	tk.Join()
	require.True(t, ran.Load())
	require.Equal(t, "simple", tk.Name())
}

func TestYield_BothTasksComplete(t *testing.T) {
	loop := newTestLoop(t)

	var order []int
	var mu sync.Mutex
	record := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)

	a := task.New(loop, func() {
		record(1)
		task.Yield()
		record(3)
		wg.Done()
	}, task.WithName("a"))

	b := task.New(loop, func() {
		record(2)
		wg.Done()
	}, task.WithName("b"))

	a.Join()
	b.Join()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
}

func TestAwait_AsyncDelivery(t *testing.T) {
	loop := newTestLoop(t)

	var deliver func(int)
	ready := make(chan struct{})

	tk := task.New(loop, func() {
		result := task.Await(func(d func(int)) {
			deliver = d
			close(ready)
		})
		if result != 42 {
			panic("unexpected result")
		}
	}, task.WithName("awaiter"))

	<-ready
	deliver(42)
	tk.Join()
}

func TestAwait_SyncDeliveryDoesNotDeadlock(t *testing.T) {
	loop := newTestLoop(t)

	tk := task.New(loop, func() {
		result := task.Await(func(d func(int)) {
			d(7) // fires synchronously, before yieldImpl runs
		})
		if result != 7 {
			panic("unexpected result")
		}
	}, task.WithName("sync-awaiter"))

	tk.Join()
}

func TestJoin_AlreadyTerminatedReturnsImmediately(t *testing.T) {
	loop := newTestLoop(t)

	tk := task.New(loop, func() {}, task.WithName("quick"))
	tk.Join()

	// A second Join, or a Join from a different task, on an
	// already-terminated task must not block.
	done := make(chan struct{})
	joiner := task.New(loop, func() {
		tk.Join()
		close(done)
	}, task.WithName("joiner"))
	joiner.Join()
	<-done
}

func TestCallWhenDone_ImmediateAndDeferred(t *testing.T) {
	loop := newTestLoop(t)

	var deferredCalled atomic.Bool
	release := make(chan struct{})

	tk := task.New(loop, func() {
		<-releaseViaAwait(release)
	}, task.WithName("delayed"))

	tk.CallWhenDone(func() { deferredCalled.Store(true) })
	require.False(t, deferredCalled.Load())

	close(release)
	tk.Join()
	require.True(t, deferredCalled.Load())

	var immediateCalled atomic.Bool
	tk.CallWhenDone(func() { immediateCalled.Store(true) })
	require.True(t, immediateCalled.Load())
}

// releaseViaAwait adapts a plain channel into the await bridge, since a
// Task body must suspend via Await/Sleep rather than blocking directly on
// an unrelated channel (which the scheduler has no visibility into).
func releaseViaAwait(release chan struct{}) chan struct{} {
	task.Await(func(deliver func(struct{})) {
		go func() {
			<-release
			deliver(struct{}{})
		}()
	})
	return release
}

func TestSleepAndWake(t *testing.T) {
	loop := newTestLoop(t)

	started := make(chan struct{})
	tk := task.New(loop, func() {
		close(started)
		err := task.Sleep(time.Hour)
		if err == nil {
			panic("expected sleep to be cancelled")
		}
	}, task.WithName("sleeper"))

	<-started
	time.Sleep(10 * time.Millisecond)

	require.True(t, tk.Wake())
	require.False(t, tk.Wake()) // second wake has nothing to cancel

	tk.Join()
}

func TestSleep_OffTask(t *testing.T) {
	start := time.Now()
	require.NoError(t, task.Sleep(10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestPriority_InheritsFromParent(t *testing.T) {
	loop := newTestLoop(t)

	var childPriority task.Priority
	done := make(chan struct{})
	task.New(loop, func() {
		child := task.New(loop, func() {
			childPriority = task.CurrentPriority()
		}, task.WithName("child"))
		child.Join()
		close(done)
	}, task.WithName("parent"), task.WithPriority(5))

	<-done
	require.Equal(t, task.Priority(105), childPriority)
}

func TestPriority_ExplicitOverridesInheritance(t *testing.T) {
	loop := newTestLoop(t)
	tk := task.New(loop, func() {}, task.WithPriority(99))
	tk.Join()
	require.Equal(t, task.Priority(99), tk.Priority())
}

func TestSpawnChain_LongerThanNestingCapCompletes(t *testing.T) {
	loop := newTestLoop(t)

	const chainLength = task.ExportedMaxNestingDepth*2 + 4

	var wg sync.WaitGroup
	wg.Add(1)

	var spawnNext func(remaining int)
	spawnNext = func(remaining int) {
		if remaining == 0 {
			wg.Done()
			return
		}
		task.New(loop, func() {
			spawnNext(remaining - 1)
		}, task.WithName("chain"))
	}

	task.New(loop, func() {
		spawnNext(chainLength)
	}, task.WithName("chain-root"))

	wg.Wait()
}

func TestDebugInfo_PushPopAroundWork(t *testing.T) {
	loop := newTestLoop(t)

	done := make(chan struct{})
	task.New(loop, func() {
		frame := task.PushDebugInfo("doing work")
		defer task.PopDebugInfo(frame)
		require.NotNil(t, task.Current())
		close(done)
	}, task.WithName("debugger"))

	<-done
}

func TestCurrent_NilOutsideTask(t *testing.T) {
	require.Nil(t, task.Current())
	require.Equal(t, task.DefaultPriority, task.CurrentPriority())
}

func TestPanicError_Unwrap(t *testing.T) {
	inner := &task.Violation{Op: "x", State: "y", Msg: "z"}
	perr := &task.PanicError{TaskName: "t", Value: inner}
	require.Equal(t, inner, perr.Unwrap())

	perr2 := &task.PanicError{TaskName: "t", Value: "not an error"}
	require.Nil(t, perr2.Unwrap())
}

func TestStateBitsString_OneCharPerFlag(t *testing.T) {
	s := task.ExportedStateBitsString(task.ExportedSuspended | task.ExportedNeedSignal)
	require.Len(t, s, task.ExportedNumStateFlags)
}
