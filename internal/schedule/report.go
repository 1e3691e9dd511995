package schedule

import (
	"github.com/vk/medusa/internal/proc"
	"github.com/vk/medusa/internal/suite"
)

// RunResult pairs a terminated run with its supervisor result.
type RunResult struct {
	Run *suite.Run
	Res proc.Result
}

// Report is the aggregate outcome of one scheduler execution.
type Report struct {
	// Results holds one entry per dispatched run, in termination order.
	Results []RunResult
	// Blocked lists runs that could never be admitted even with an empty
	// in-flight set.
	Blocked []*suite.Run
	// Cancelled lists runs that were still queued when the user interrupted
	// the execution.
	Cancelled []*suite.Run
	// Interrupted is set when execution stopped on a user interrupt.
	Interrupted bool
}

// OK reports whether every run was dispatched and exited clean.
func (r *Report) OK() bool {
	if r.Interrupted || len(r.Blocked) > 0 || len(r.Cancelled) > 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Res.OK() {
			return false
		}
	}
	return true
}
