package value

import (
	"regexp"
	"strings"

	"github.com/vk/medusa/internal/errdefs"
)

// Table is a suite's variable table, mapping bare variable names (without
// the ${} decoration) to values. Lookups are case-insensitive, matching the
// behavior of the suite language the tables are read from.
type Table struct {
	vars map[string]Value
}

// NewTable returns an empty variable table.
func NewTable() *Table {
	return &Table{vars: make(map[string]Value)}
}

// Set binds a variable. The name may be given bare or decorated.
func (t *Table) Set(name string, v Value) {
	t.vars[normalize(name)] = v
}

// Lookup returns the value bound to name, if any.
func (t *Table) Lookup(name string) (Value, bool) {
	v, ok := t.vars[normalize(name)]
	return v, ok
}

// Overlay returns a copy of the table with the given bindings applied on
// top. The receiver is not modified; resolution stays a pure function of
// (token, table) so re-resolving with per-run bindings is safe.
func (t *Table) Overlay(bindings []Binding) *Table {
	out := NewTable()
	for name, v := range t.vars {
		out.vars[name] = v
	}
	for _, b := range bindings {
		out.vars[normalize(b.Name)] = b.Val
	}
	return out
}

// Binding is one overlay entry: a for-target or dynamic-dep assignment.
type Binding struct {
	Name string
	Val  Value
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	if isRef(name) {
		name = refName(name)
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

var (
	// decoratedRe matches ${name}, @{name} and &{name} reference tokens.
	decoratedRe = regexp.MustCompile(`^([$@&])\{([^{}]+)\}$`)
	// bareRe matches the undecorated $name form accepted in metadata values.
	bareRe = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)$`)
	// embeddedRe matches ${name} occurrences inside a longer token.
	embeddedRe = regexp.MustCompile(`\$\{([^{}]+)\}`)
	// numberRe matches numeric literals such as ${42} or ${3.5}.
	numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

func isRef(token string) bool {
	return decoratedRe.MatchString(token) || bareRe.MatchString(token)
}

func refSigil(token string) byte {
	if m := decoratedRe.FindStringSubmatch(token); m != nil {
		return m[1][0]
	}
	return '$'
}

// RefName returns the bare variable name when token is exactly one variable
// reference, in either the ${name} or $name form.
func RefName(token string) (string, bool) {
	if !isRef(token) {
		return "", false
	}
	return refName(token), true
}

func refName(token string) string {
	if m := decoratedRe.FindStringSubmatch(token); m != nil {
		return m[2]
	}
	if m := bareRe.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return token
}

// Resolve substitutes variable references in a single metadata token and
// returns the resulting value.
//
// A token that is exactly one reference resolves to the referenced value
// with its original shape: @{name} requires a sequence, &{name} requires a
// mapping, and ${name}/$name accept any shape. Numeric literals such as
// ${42} resolve to scalar numbers and ${None} to the unbound sentinel. Any
// other token has its embedded ${name} references replaced in place and
// resolves to a scalar string.
func (t *Table) Resolve(token string) (Value, error) {
	if isRef(token) {
		return t.resolveRef(token)
	}

	var firstErr error
	out := embeddedRe.ReplaceAllStringFunc(token, func(ref string) string {
		v, err := t.resolveRef(ref)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ref
		}
		s, err := v.scalarize(refName(ref))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ref
		}
		return s
	})
	if firstErr != nil {
		return Value{}, firstErr
	}
	return String(out), nil
}

func (t *Table) resolveRef(token string) (Value, error) {
	name := refName(token)

	// Literal forms inside the braces: ${42}, ${None}, ${EMPTY}.
	if refSigil(token) == '$' {
		switch {
		case numberRe.MatchString(name):
			return Number(name)
		case strings.EqualFold(name, "none") || strings.EqualFold(name, "null"):
			return Unbound(), nil
		case name == "EMPTY":
			return String(""), nil
		case name == "SPACE":
			return String(" "), nil
		}
	}

	v, ok := t.Lookup(name)
	if !ok {
		return Value{}, errdefs.NewVariableError(name, "variable not found")
	}

	switch refSigil(token) {
	case '@':
		if !v.IsSequence() {
			return Value{}, errdefs.NewVariableError(name, "value is not a list")
		}
	case '&':
		if !v.IsMapping() {
			return Value{}, errdefs.NewVariableError(name, "value is not a dictionary")
		}
	}
	return v, nil
}

// Substitute resolves a token all the way down to a single scalar string.
func (t *Table) Substitute(token string) (string, error) {
	v, err := t.Resolve(token)
	if err != nil {
		return "", err
	}
	return v.scalarize(refName(token))
}

// ExpandRefs performs the first resolution pass over a metadata entry:
// tokens that are exactly one variable reference are resolved, and sequence
// or mapping references are flattened in place into their element strings,
// so the entry becomes a longer list of strings. Mapping references
// contribute their values, not their keys, in declared order. Tokens that
// are not a single reference pass through verbatim; embedded references in
// them are substituted later, after structural tokens such as the dynamic
// dependency clause have been recognized.
func (t *Table) ExpandRefs(tokens []string) ([]string, error) {
	var out []string
	for _, token := range tokens {
		if !isRef(token) {
			out = append(out, token)
			continue
		}
		v, err := t.Resolve(token)
		if err != nil {
			return nil, err
		}
		flat, err := flattenValue(token, v)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func flattenValue(token string, v Value) ([]string, error) {
	switch {
	case v.IsUnbound():
		return nil, errdefs.NewVariableError(refName(token), "variable has no value")
	case v.IsSequence():
		var out []string
		for _, e := range v.Elements() {
			if !e.IsScalar() {
				return nil, errdefs.NewVariableError(refName(token), "nested lists cannot be flattened into a metadata entry")
			}
			s, err := e.AsString()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case v.IsMapping():
		var out []string
		for _, p := range v.Pairs() {
			if !p.Val.IsScalar() {
				return nil, errdefs.NewVariableError(refName(token), "nested values cannot be flattened into a metadata entry")
			}
			s, err := p.Val.AsString()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}
