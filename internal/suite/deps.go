package suite

import (
	"regexp"

	"github.com/vk/medusa/internal/errdefs"
	"github.com/vk/medusa/internal/meta"
	"github.com/vk/medusa/internal/value"
)

// DynChoice is one dynamic dependency: at dispatch time the scheduler binds
// Var to exactly one of Options. Options keep declaration order because the
// scheduler's tie-break is first-available in that order.
type DynChoice struct {
	Var     string
	Options []string
}

// DepSpec is a run's normalized dependency declaration: a set of static
// tokens plus zero or more dynamic choices, both in declaration order.
type DepSpec struct {
	Static  []string
	Dynamic []DynChoice
}

// Empty reports whether the run declares no dependencies at all. Such a run
// is admissible regardless of what is currently held.
func (d DepSpec) Empty() bool {
	return len(d.Static) == 0 && len(d.Dynamic) == 0
}

// dynDepRe recognizes the structural ANY <var> IN <list> clause. The clause
// is matched against a whole token, after list references in the entry have
// been flattened, so list elements may themselves carry dynamic clauses.
var dynDepRe = regexp.MustCompile(`^ANY (\S+) [iI][nN] (\S+)$`)

// parseDeps normalizes the resolved medusa:deps entries of one run into a
// DepSpec, using the given (possibly overlaid) variable table.
func parseDeps(entries []meta.Entry, tbl *value.Table) (DepSpec, error) {
	var tokens []string
	for _, e := range entries {
		tokens = append(tokens, e...)
	}

	expanded, err := tbl.ExpandRefs(tokens)
	if err != nil {
		return DepSpec{}, errdefs.NewMetadataError(meta.KeyDeps, err.Error())
	}

	var spec DepSpec
	staticSeen := make(map[string]struct{})
	dynSeen := make(map[string]struct{})

	for _, token := range expanded {
		if m := dynDepRe.FindStringSubmatch(token); m != nil {
			choice, err := parseDynChoice(m[1], m[2], tbl)
			if err != nil {
				return DepSpec{}, err
			}
			if _, dup := dynSeen[choice.Var]; dup {
				return DepSpec{}, errdefs.NewMetadataError(meta.KeyDeps, "duplicate dynamic dependency variable '"+choice.Var+"'")
			}
			dynSeen[choice.Var] = struct{}{}
			spec.Dynamic = append(spec.Dynamic, choice)
			continue
		}

		dep, err := tbl.Substitute(token)
		if err != nil {
			return DepSpec{}, errdefs.NewMetadataError(meta.KeyDeps, err.Error())
		}
		if !meta.NameRe.MatchString(dep) {
			return DepSpec{}, errdefs.NewMetadataError(meta.KeyDeps, "invalid characters in dependency '"+dep+"'")
		}
		if _, dup := staticSeen[dep]; !dup {
			staticSeen[dep] = struct{}{}
			spec.Static = append(spec.Static, dep)
		}
	}

	// A static dep can never be chosen for a dynamic slot of the same run,
	// so shadowed options are removed up front. A choice whose options are
	// all shadowed can never be satisfied.
	for i, choice := range spec.Dynamic {
		var options []string
		for _, opt := range choice.Options {
			if _, static := staticSeen[opt]; !static {
				options = append(options, opt)
			}
		}
		if len(options) == 0 {
			return DepSpec{}, errdefs.NewMetadataError(meta.KeyDeps,
				"dynamic dependency '"+choice.Var+"' is impossible to satisfy, all options are taken by static deps")
		}
		spec.Dynamic[i].Options = options
	}

	return spec, nil
}

func parseDynChoice(varTok, listTok string, tbl *value.Table) (DynChoice, error) {
	name, ok := value.RefName(varTok)
	if !ok {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
			"dynamic dependency target '"+varTok+"' is not a variable reference")
	}
	target, declared := tbl.Lookup(name)
	if !declared {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
			"the target variable of a dynamic dependency must be declared, but '"+varTok+"' is undefined")
	}
	if !target.IsUnbound() {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
			"the target variable of a dynamic dependency must be declared with value None, but '"+varTok+"' has a value")
	}

	listVal, err := tbl.Resolve(listTok)
	if err != nil {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps, "failed to resolve dynamic dependency options: "+err.Error())
	}
	if !listVal.IsSequence() {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
			"the dynamic dependency options variable '"+listTok+"' is not a list")
	}

	var options []string
	seen := make(map[string]struct{})
	for _, e := range listVal.Elements() {
		opt, err := e.AsString()
		if err != nil {
			return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
				"the dynamic dependency options variable '"+listTok+"' contains non-scalar values")
		}
		if !meta.NameRe.MatchString(opt) {
			return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps, "invalid characters in dependency '"+opt+"'")
		}
		if _, dup := seen[opt]; !dup {
			seen[opt] = struct{}{}
			options = append(options, opt)
		}
	}
	if len(options) == 0 {
		return DynChoice{}, errdefs.NewMetadataError(meta.KeyDeps,
			"the dynamic dependency options variable '"+listTok+"' is empty")
	}

	return DynChoice{Var: name, Options: options}, nil
}
