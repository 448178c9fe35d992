package task

// StackType is advisory metadata about how a Task's stack should be
// allocated. Go's goroutine stacks grow dynamically regardless of this
// value (see continuation.go); it is retained purely for API and
// introspection fidelity with the spec's construction signature.
type StackType int

const (
	// StackFixedSize requests a fixed-size stack, the default.
	StackFixedSize StackType = iota
	// StackProtected requests a guard-paged stack.
	StackProtected
	// StackPooled requests a stack drawn from a reuse pool.
	StackPooled
)

// taskConfig holds the resolved construction options for a Task.
type taskConfig struct {
	name           string
	priority       Priority
	priorityIsSet  bool
	stackSizeBytes int
	stackType      StackType
	logger         Logger
	metrics        MetricsHook
}

// TaskOption configures a Task at construction time, following the
// functional-options pattern this package's Loop-configuration ancestor
// uses for LoopOption.
type TaskOption interface {
	applyTask(*taskConfig)
}

type taskOptionFunc func(*taskConfig)

func (f taskOptionFunc) applyTask(c *taskConfig) { f(c) }

// WithName sets the Task's human-readable name. Defaults to "(anonymous)".
func WithName(name string) TaskOption {
	return taskOptionFunc(func(c *taskConfig) { c.name = name })
}

// WithPriority sets the Task's initial priority explicitly, overriding the
// default of InheritPriority(Current()).
func WithPriority(p Priority) TaskOption {
	return taskOptionFunc(func(c *taskConfig) {
		c.priority = p
		c.priorityIsSet = true
	})
}

// WithStackSize sets the advisory stack size in bytes. Defaults to 16KiB.
func WithStackSize(bytes int) TaskOption {
	return taskOptionFunc(func(c *taskConfig) { c.stackSizeBytes = bytes })
}

// WithStackType sets the advisory stack allocation policy.
func WithStackType(t StackType) TaskOption {
	return taskOptionFunc(func(c *taskConfig) { c.stackType = t })
}

// WithLogger overrides the package's global structured logger for this
// Task's body-panic and violation diagnostics.
func WithLogger(l Logger) TaskOption {
	return taskOptionFunc(func(c *taskConfig) { c.logger = l })
}

// WithMetrics installs a MetricsHook observing this Task's lifecycle
// events. Defaults to a no-op hook.
func WithMetrics(m MetricsHook) TaskOption {
	return taskOptionFunc(func(c *taskConfig) { c.metrics = m })
}

// defaultName is returned by Name() for tasks constructed without
// WithName.
const defaultName = "(anonymous)"

// defaultStackSizeBytes is the advisory default stack size.
const defaultStackSizeBytes = 16 * 1024

// resolveTaskOptions applies opts over the package defaults, inheriting
// priority from the currently running task (if any) unless WithPriority
// was used.
func resolveTaskOptions(opts []TaskOption) *taskConfig {
	cfg := &taskConfig{
		name:           defaultName,
		stackSizeBytes: defaultStackSizeBytes,
		stackType:      StackFixedSize,
		logger:         getGlobalLogger(),
		metrics:        noopMetricsHook{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyTask(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	if !cfg.priorityIsSet {
		cfg.priority = InheritPriority(Current())
	}
	return cfg
}
