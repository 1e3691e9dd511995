// Package filter restricts which runs execute, based on their stage and
// dependency declarations. Filters can also narrow the option pools of
// dynamic dependencies, so a run survives a deps filter with a reduced pool.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/medusa/internal/meta"
	"github.com/vk/medusa/internal/suite"
)

// Operator selects how a deps filter matches: '=' requires the run's deps to
// stay within the listed values, '~' requires an overlap.
type Operator string

const (
	Only Operator = "="
	Any  Operator = "~"
)

var exprRe = regexp.MustCompile(`^(deps|stage)([=~])(.+)$`)

// Filters is the combined effect of all -f/--filter arguments.
type Filters struct {
	active    bool
	mode      Operator
	depsIncl  map[string]struct{}
	depsExcl  map[string]struct{}
	stageIncl map[string]struct{}
	stageExcl map[string]struct{}
}

// New parses filter expressions of the form <key><op><value>[,<value>]...
// where key is 'deps' or 'stage' and a '!' prefix on a value excludes it.
func New(args []string) (*Filters, error) {
	f := &Filters{
		active:    len(args) > 0,
		depsIncl:  make(map[string]struct{}),
		depsExcl:  make(map[string]struct{}),
		stageIncl: make(map[string]struct{}),
		stageExcl: make(map[string]struct{}),
	}

	for _, arg := range args {
		m := exprRe.FindStringSubmatch(arg)
		if m == nil {
			return nil, fmt.Errorf("filter '%s' has invalid format", arg)
		}
		key, op := m[1], Operator(m[2])

		if key == "stage" && op != Only {
			return nil, fmt.Errorf("the 'stage' filter can only be used with the '=' operator")
		}
		if key == "deps" {
			if f.mode != "" && f.mode != op {
				return nil, fmt.Errorf("the deps filter operators '=' and '~' can't be mixed")
			}
			f.mode = op
		}

		for _, val := range strings.Split(m[3], ",") {
			excluded := strings.HasPrefix(val, "!")
			val = strings.TrimPrefix(val, "!")
			if !meta.NameRe.MatchString(val) {
				return nil, fmt.Errorf("filter value '%s' is not a valid metadata value", val)
			}
			switch {
			case key == "stage" && excluded:
				f.stageExcl[val] = struct{}{}
			case key == "stage":
				f.stageIncl[val] = struct{}{}
			case excluded:
				f.depsExcl[val] = struct{}{}
			default:
				f.depsIncl[val] = struct{}{}
			}
		}
	}
	return f, nil
}

// MatchAndNarrow decides whether the run may execute, narrowing its dynamic
// dependency pools in place where the filter demands it. A run whose pool
// empties out is excluded.
func (f *Filters) MatchAndNarrow(r *suite.Run) bool {
	if !f.active {
		return true
	}

	if _, excluded := f.stageExcl[r.Stage]; excluded {
		return false
	}
	if len(f.stageIncl) > 0 {
		if _, included := f.stageIncl[r.Stage]; !included {
			return false
		}
	}

	if len(f.depsExcl) > 0 {
		for _, dep := range r.Deps.Static {
			if _, excluded := f.depsExcl[dep]; excluded {
				return false
			}
		}
		if !narrow(&r.Deps, func(opt string) bool {
			_, excluded := f.depsExcl[opt]
			return !excluded
		}) {
			return false
		}
	}

	if f.mode == Only && len(f.depsIncl) > 0 {
		for _, dep := range r.Deps.Static {
			if _, included := f.depsIncl[dep]; !included {
				return false
			}
		}
		if !narrow(&r.Deps, func(opt string) bool {
			_, included := f.depsIncl[opt]
			return included
		}) {
			return false
		}
		if !satisfiable(r.Deps) {
			return false
		}
	}

	// The '~' operator only considers static deps. Matching against dynamic
	// pools would pull in most suites that merely might touch a dep.
	if f.mode == Any && len(f.depsIncl) > 0 {
		overlap := false
		for _, dep := range r.Deps.Static {
			if _, included := f.depsIncl[dep]; included {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}

	return true
}

// narrow keeps only the options the predicate accepts. It reports false
// when any choice loses its whole pool.
func narrow(deps *suite.DepSpec, keep func(string) bool) bool {
	for i, choice := range deps.Dynamic {
		var options []string
		for _, opt := range choice.Options {
			if keep(opt) {
				options = append(options, opt)
			}
		}
		if len(options) == 0 {
			return false
		}
		deps.Dynamic[i].Options = options
	}
	return true
}

// satisfiable replays the scheduler's greedy first-available binding with
// nothing else in flight: narrowing may leave every choice non-empty and the
// combination still unassignable.
func satisfiable(deps suite.DepSpec) bool {
	taken := make(map[string]struct{}, len(deps.Static))
	for _, dep := range deps.Static {
		taken[dep] = struct{}{}
	}
	for _, choice := range deps.Dynamic {
		picked := ""
		for _, opt := range choice.Options {
			if _, used := taken[opt]; !used {
				picked = opt
				break
			}
		}
		if picked == "" {
			return false
		}
		taken[picked] = struct{}{}
	}
	return true
}
