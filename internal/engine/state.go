package engine

// State is the execution lifecycle state of a task instance.
//
// Transitions: Pending → Ready once all producers are terminal-ok;
// Ready → Running when resources are granted and the command launched;
// Running → Succeeded/Failed on command exit. SkippedFresh replaces the
// whole lifecycle for instances staleness decided need not run;
// SkippedFailed marks descendants of a failure that were never dispatched.
type State int

const (
	Pending State = iota
	Ready
	Running
	Succeeded
	Failed
	SkippedFresh
	SkippedFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case SkippedFresh:
		return "skipped-fresh"
	case SkippedFailed:
		return "skipped-failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, SkippedFresh, SkippedFailed:
		return true
	}
	return false
}

// satisfiesDependents reports whether a producer in this state allows its
// consumers to become ready.
func (s State) satisfiesDependents() bool {
	return s == Succeeded || s == SkippedFresh
}
