package suite

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/medusa/internal/errdefs"
	"github.com/vk/medusa/internal/meta"
	"github.com/vk/medusa/internal/value"
)

// Source is one parsed suite as handed over by the suite parser: its
// variable table, its recognized metadata, and enough shape information for
// stats output.
type Source struct {
	Path     string
	Name     string
	Vars     *value.Table
	Meta     *meta.Set
	NumTests int
	Tags     []string
}

// Expand produces the runs of one suite. Without medusa:for the suite
// yields exactly one run; otherwise each iteration of the for-clause yields
// one run whose stage, deps and timeout are re-resolved with the iteration's
// bindings overlaid on the variable table, so they may differ per run.
func Expand(src *Source) ([]*Run, error) {
	if !src.Meta.HasFor() {
		run, err := expandOne(src, nil, 0, "")
		if err != nil {
			return nil, err
		}
		return []*Run{run}, nil
	}

	iterations, err := parseForClause(src.Meta.For, src.Vars)
	if err != nil {
		return nil, err
	}

	runs := make([]*Run, 0, len(iterations))
	for i, bindings := range iterations {
		// Sibling runs share the suite name, so each gets a short unique
		// suffix for result directories and reports.
		suffix := " " + uuid.NewString()[:8]
		run, err := expandOne(src, bindings, i, suffix)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func expandOne(src *Source, bindings []value.Binding, index int, suffix string) (*Run, error) {
	tbl := src.Vars
	if bindings != nil {
		tbl = tbl.Overlay(bindings)
	}

	stage, err := resolveStage(src.Meta.Stage, tbl)
	if err != nil {
		return nil, err
	}

	deps, err := parseDeps(src.Meta.Deps, tbl)
	if err != nil {
		return nil, err
	}

	var timeout *Timeout
	if src.Meta.HasTimeout() {
		timeout, err = resolveTimeout(src.Meta.Timeout, tbl)
		if err != nil {
			return nil, err
		}
	}

	return &Run{
		SuitePath: src.Path,
		Name:      src.Name + suffix,
		Stage:     stage,
		Deps:      deps,
		Timeout:   timeout,
		ForVars:   bindings,
		Index:     index,
		NumTests:  src.NumTests,
		Tags:      src.Tags,
	}, nil
}

func resolveStage(entry meta.Entry, tbl *value.Table) (string, error) {
	if len(entry) != 1 {
		return "", errdefs.NewMetadataError(meta.KeyStage, "expected a single value")
	}
	stage, err := tbl.Substitute(entry[0])
	if err != nil {
		return "", errdefs.NewMetadataError(meta.KeyStage, err.Error())
	}
	if !meta.NameRe.MatchString(stage) {
		return "", errdefs.NewMetadataError(meta.KeyStage, "invalid characters in stage '"+stage+"'")
	}
	return stage, nil
}

func resolveTimeout(entry meta.Entry, tbl *value.Table) (*Timeout, error) {
	if len(entry) != 1 {
		return nil, errdefs.NewMetadataError(meta.KeyTimeout, "expected a single value")
	}
	argstr, err := tbl.Substitute(entry[0])
	if err != nil {
		return nil, errdefs.NewMetadataError(meta.KeyTimeout, err.Error())
	}
	t, err := ParseTimeout(argstr)
	if err != nil {
		return nil, errdefs.NewMetadataError(meta.KeyTimeout, err.Error())
	}
	return t, nil
}

// parseForClause parses '$TARGET [$TARGET...] IN $SOURCE' and resolves the
// source into one binding list per iteration.
func parseForClause(entry meta.Entry, tbl *value.Table) ([][]value.Binding, error) {
	if len(entry) < 3 {
		return nil, errdefs.NewMetadataError(meta.KeyFor, "not enough arguments")
	}
	if !strings.EqualFold(entry[len(entry)-2], "IN") {
		return nil, errdefs.NewMetadataError(meta.KeyFor,
			"format should be '$TARGET [$TARGET...] IN $SOURCE' but 'IN' was not found")
	}

	targets := make([]string, 0, len(entry)-2)
	for _, tok := range entry[:len(entry)-2] {
		name, ok := value.RefName(tok)
		if !ok {
			return nil, errdefs.NewMetadataError(meta.KeyFor, "target '"+tok+"' is not a variable reference")
		}
		declared, found := tbl.Lookup(name)
		if !found {
			return nil, errdefs.NewMetadataError(meta.KeyFor,
				"variable '"+tok+"' is not defined, target variables must be declared with value None")
		}
		if !declared.IsUnbound() {
			return nil, errdefs.NewMetadataError(meta.KeyFor,
				"variable '"+tok+"' already has a value, target variables must be declared with value None")
		}
		targets = append(targets, name)
	}

	source, err := tbl.Resolve(entry[len(entry)-1])
	if err != nil {
		return nil, errdefs.NewMetadataError(meta.KeyFor, err.Error())
	}

	switch {
	case source.IsUnbound():
		return nil, errdefs.NewMetadataError(meta.KeyFor, "source variable '"+entry[len(entry)-1]+"' is unset or None")
	case source.IsMapping():
		return iterateMapping(targets, source)
	case source.IsSequence():
		return iterateSequence(targets, source)
	default:
		return nil, errdefs.NewMetadataError(meta.KeyFor, "source variable is not iterable")
	}
}

// iterateMapping yields one iteration per entry, binding the key to the
// first target and the value to the second.
func iterateMapping(targets []string, source value.Value) ([][]value.Binding, error) {
	if len(targets) != 2 {
		return nil, errdefs.NewMetadataError(meta.KeyFor,
			"source is a dictionary, which can only be assigned to 2 variables")
	}
	var iterations [][]value.Binding
	for _, p := range source.Pairs() {
		iterations = append(iterations, []value.Binding{
			{Name: targets[0], Val: value.String(p.Key)},
			{Name: targets[1], Val: p.Val},
		})
	}
	return iterations, nil
}

func iterateSequence(targets []string, source value.Value) ([][]value.Binding, error) {
	var iterations [][]value.Binding
	for i, elem := range source.Elements() {
		bindings, err := bindElement(targets, elem)
		if err != nil {
			return nil, errdefs.NewMetadataError(meta.KeyFor,
				"source item "+strconv.Itoa(i+1)+": "+err.Error())
		}
		iterations = append(iterations, bindings)
	}
	return iterations, nil
}

// bindElement maps one source element onto the targets. A single target
// takes the element as-is; multiple targets require a sequence of matching
// arity or a single-entry mapping for exactly two targets.
func bindElement(targets []string, elem value.Value) ([]value.Binding, error) {
	if len(targets) == 1 {
		return []value.Binding{{Name: targets[0], Val: elem}}, nil
	}

	if elem.IsMapping() {
		pairs := elem.Pairs()
		if len(targets) == 2 && len(pairs) == 1 {
			return []value.Binding{
				{Name: targets[0], Val: value.String(pairs[0].Key)},
				{Name: targets[1], Val: pairs[0].Val},
			}, nil
		}
		return nil, errEntryArity(len(targets))
	}

	if !elem.IsSequence() {
		return nil, errEntryArity(len(targets))
	}
	elems := elem.Elements()
	if len(elems) != len(targets) {
		return nil, errEntryArity(len(targets))
	}
	bindings := make([]value.Binding, len(targets))
	for i, t := range targets {
		bindings[i] = value.Binding{Name: t, Val: elems[i]}
	}
	return bindings, nil
}

func errEntryArity(n int) error {
	return errors.New("element count does not match the " + strconv.Itoa(n) + " target variables")
}
