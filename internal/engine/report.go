package engine

import "github.com/vk/spacesd/internal/model"

// Status is the per-resource outcome of one resolution pass.
type Status int

const (
	// Applied means the provider changed system state.
	Applied Status = iota
	// AlreadySatisfied means the provider found the target state in place.
	AlreadySatisfied
	// Skipped means a dependency failed or was itself skipped, or the run
	// was aborted before the node started; its provider was never invoked.
	Skipped
	// Failed means the provider reported an error or timed out.
	Failed
)

// String returns the lowercase human-readable form of the status.
func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case AlreadySatisfied:
		return "already-satisfied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Well-known skip and failure reasons.
const (
	ReasonTimeout = "timeout"
	ReasonAborted = "aborted"
)

// Report is the streamed outcome for one node. Exactly one report is
// emitted per node per run, in plan order.
type Report struct {
	ID     model.ResourceID
	Status Status
	// Detail is the human-readable annotation: the provider's detail line,
	// or the skip/failure reason.
	Detail string
	// Err holds the provider error for Failed reports.
	Err error
}
