// Package stats aggregates and prints information about the runs a set of
// suite files would produce, without executing anything.
package stats

import (
	"fmt"
	"sort"

	"github.com/vk/medusa/internal/suite"
)

// StageStats counts the runs and tests of one stage.
type StageStats struct {
	Name   string
	Runs   []*suite.Run
	NTests int
}

// Stats is the aggregate over all runs that survived filtering.
type Stats struct {
	Stages     map[string]*StageStats
	NRuns      int
	NTests     int
	StaticCnt  map[string]int
	DynamicCnt map[string]int
	TagCnt     map[string]int
}

// Collect builds the aggregate counters. A dependency is counted once per
// run that declares it; a tag once per test that carries it.
func Collect(runs []*suite.Run) *Stats {
	s := &Stats{
		Stages:     make(map[string]*StageStats),
		StaticCnt:  make(map[string]int),
		DynamicCnt: make(map[string]int),
		TagCnt:     make(map[string]int),
	}

	for _, r := range runs {
		st, ok := s.Stages[r.Stage]
		if !ok {
			st = &StageStats{Name: r.Stage}
			s.Stages[r.Stage] = st
		}
		st.Runs = append(st.Runs, r)
		st.NTests += r.NumTests

		s.NRuns++
		s.NTests += r.NumTests

		for _, dep := range r.Deps.Static {
			s.StaticCnt[dep]++
		}
		seen := make(map[string]struct{})
		for _, choice := range r.Deps.Dynamic {
			for _, opt := range choice.Options {
				if _, dup := seen[opt]; !dup {
					seen[opt] = struct{}{}
					s.DynamicCnt[opt]++
				}
			}
		}
		for _, tag := range r.Tags {
			s.TagCnt[tag]++
		}
	}
	return s
}

func (s *Stats) stageNames() []string {
	names := make([]string, 0, len(s.Stages))
	for name := range s.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func fmtCount(n int, unit string) string {
	return fmt.Sprintf("%d %s", n, plural(n, unit))
}
