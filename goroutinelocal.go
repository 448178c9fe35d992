package task

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// goroutineLocal is the Go analogue of the spec's per-thread state:
// a pointer to the currently running Task (nullable) and the nesting-depth
// counter that bounds recursive synchronous activation (spec §3, §4.4,
// §5). Go has no native thread-local storage, but since exactly one
// goroutine ever drives a given Task's resumeImpl at a time, and the
// identity of "which goroutine is currently executing" is exactly what a
// thread-local would have captured in the original design, we key a table
// of these by goroutine id.
type goroutineLocal struct {
	currentTask       *Task
	nestingDepth      int
	threadIDAssigned  bool
	threadIDValue     int32
}

var goroutineLocals sync.Map // uint64 goroutine id -> *goroutineLocal

// currentLocal returns (creating if necessary) the goroutineLocal for the
// calling goroutine.
func currentLocal() *goroutineLocal {
	id := getGoroutineID()
	if v, ok := goroutineLocals.Load(id); ok {
		return v.(*goroutineLocal)
	}
	l := &goroutineLocal{}
	actual, _ := goroutineLocals.LoadOrStore(id, l)
	return actual.(*goroutineLocal)
}

// getGoroutineID parses the calling goroutine's id out of its own stack
// trace header ("goroutine N [running]:..."). This is the same technique
// the eventloop package's isLoopThread/getGoroutineID pair uses to check
// single-ownership of its run loop; here it keys per-goroutine task and
// nesting-depth state instead.
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

// threadIDCounter issues monotonically increasing thread ids for debug
// output, starting at 1000 (spec §3: "monotonic i32 counter issuing
// thread ids, initialised to 1000").
var threadIDCounter atomic.Int32

func init() {
	threadIDCounter.Store(1000)
}

// threadID lazily assigns and returns a stable debug id for the calling
// goroutine.
func threadID() int32 {
	l := currentLocal()
	if l.threadIDAssigned {
		return l.threadIDValue
	}
	l.threadIDValue = threadIDCounter.Add(1) - 1
	l.threadIDAssigned = true
	return l.threadIDValue
}
