package task

// Exported aliases for identifiers that are otherwise unexported, so that
// the external task_test package (which must import executor, and so
// cannot itself live in package task without creating an import cycle)
// can still exercise them.
const (
	ExportedMaxNestingDepth = maxNestingDepth
	ExportedNumStateFlags   = numStateFlags
	ExportedSuspended       = suspended
	ExportedNeedSignal      = needSignal
)

var ExportedStateBitsString = stateBitsString
