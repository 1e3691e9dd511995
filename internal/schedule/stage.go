// Package schedule implements the stage-by-stage dispatcher: it admits runs
// whose dependencies do not collide with the in-flight set, binds dynamic
// choices, and hands admitted runs to a Dispatcher.
package schedule

import (
	"sort"

	"github.com/vk/medusa/internal/suite"
)

// Stage is one parallel cohort: all runs sharing a stage label. Cohorts
// execute serially in byte-lexicographic label order.
type Stage struct {
	Name string
	Runs []*suite.Run
}

// Stages groups runs by stage label, keeping the input order within each
// stage, and returns the stages sorted by label.
func Stages(runs []*suite.Run) []*Stage {
	byName := make(map[string]*Stage)
	var names []string
	for _, r := range runs {
		st, ok := byName[r.Stage]
		if !ok {
			st = &Stage{Name: r.Stage}
			byName[r.Stage] = st
			names = append(names, r.Stage)
		}
		st.Runs = append(st.Runs, r)
	}
	sort.Strings(names)

	stages := make([]*Stage, len(names))
	for i, name := range names {
		stages[i] = byName[name]
	}
	return stages
}
