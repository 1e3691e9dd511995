// Package suite models the schedulable unit of work — a Run — and expands
// suite declarations into one or more Runs via the medusa:for metadata.
package suite

import (
	"fmt"

	"github.com/vk/medusa/internal/value"
)

// Status is a run's position in its lifecycle. Runs are owned by the
// scheduler queue of their stage and move strictly forward.
type Status int

const (
	Pending Status = iota
	Dispatched
	Terminated
)

// Run is one execution of one suite with one concrete set of variable
// bindings.
type Run struct {
	// SuitePath is the origin suite file.
	SuitePath string
	// Name identifies this run; expanded runs carry a unique suffix so that
	// sibling runs of one suite stay distinguishable in results.
	Name string
	// Stage is the resolved stage label. Stages execute in byte order.
	Stage string
	// Deps is the normalized dependency declaration.
	Deps DepSpec
	// Timeout is the run's own escalation, or nil to inherit the default.
	Timeout *Timeout
	// ForVars carries the per-iteration medusa:for assignments in target
	// declaration order. Empty when the suite declared no expansion.
	ForVars []value.Binding
	// Index is the run's position within its suite's expansion.
	Index int

	// NumTests and Tags describe the origin suite, for stats output.
	NumTests int
	Tags     []string

	Status Status

	dynValues []string
}

// BindDynamic fixes the chosen value of every dynamic choice, in declaration
// order. It is called exactly once, by the scheduler at dispatch time.
func (r *Run) BindDynamic(values []string) {
	if r.dynValues != nil {
		panic("suite: dynamic dependencies already bound")
	}
	if len(values) != len(r.Deps.Dynamic) {
		panic(fmt.Sprintf("suite: %d dynamic values for %d choices", len(values), len(r.Deps.Dynamic)))
	}
	r.dynValues = values
}

// DynBound reports whether dynamic choices have been bound yet.
func (r *Run) DynBound() bool {
	return len(r.Deps.Dynamic) == 0 || r.dynValues != nil
}

// DynValues returns the chosen dynamic values as bindings in choice
// declaration order. Before binding, every value is nil-equivalent and the
// result is empty.
func (r *Run) DynValues() []value.Binding {
	if r.dynValues == nil {
		return nil
	}
	out := make([]value.Binding, len(r.dynValues))
	for i, v := range r.dynValues {
		out[i] = value.Binding{Name: r.Deps.Dynamic[i].Var, Val: value.String(v)}
	}
	return out
}

// EffectiveDeps is the dependency set the scheduler holds while the run is
// in flight: static tokens in declared order, then the chosen dynamic values
// in choice order, duplicates removed. It must not be called before dynamic
// binding.
func (r *Run) EffectiveDeps() []string {
	if !r.DynBound() {
		panic("suite: effective deps requested before dynamic binding")
	}
	seen := make(map[string]struct{}, len(r.Deps.Static)+len(r.dynValues))
	var out []string
	add := func(dep string) {
		if _, dup := seen[dep]; !dup {
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	for _, dep := range r.Deps.Static {
		add(dep)
	}
	for _, v := range r.dynValues {
		add(v)
	}
	return out
}
