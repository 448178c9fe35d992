package task

// MetricsHook observes Task lifecycle events, following the shape of the
// eventloop package's Metrics interface: a set of narrow, optional,
// non-blocking callbacks an embedder can wire into a monitoring system.
// No behavior in this package depends on a MetricsHook being installed;
// it is purely additive instrumentation (SPEC_FULL §5).
type MetricsHook interface {
	// TaskSpawned is called once, from the Task constructor, after the
	// task's goroutine has been started and linked into the registry.
	TaskSpawned(id int32, name string, priority Priority)

	// TaskTerminated is called once, when a Task's body has returned and
	// its Terminated bit has been set.
	TaskTerminated(id int32, name string)

	// NestingDepthObserved is called from scheduleToRun with the nesting
	// depth observed on the scheduling goroutine, before it decides
	// between dispatch and post.
	NestingDepthObserved(depth int)
}

// noopMetricsHook is the default, zero-overhead MetricsHook.
type noopMetricsHook struct{}

func (noopMetricsHook) TaskSpawned(int32, string, Priority) {}
func (noopMetricsHook) TaskTerminated(int32, string)        {}
func (noopMetricsHook) NestingDepthObserved(int)            {}
