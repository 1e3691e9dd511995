// Package value implements the variable value model used by suite metadata:
// a tagged variant of scalar, sequence or mapping, backed by cty values, plus
// the resolver that substitutes variable references in metadata tokens.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/medusa/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Value is one resolved variable value: a scalar (string or number), an
// ordered sequence, a mapping, or the unbound sentinel (a declared value of
// None). Mappings additionally carry their key order as declared in the
// suite file, because cty objects iterate attributes lexicographically.
type Value struct {
	v    cty.Value
	keys []string
}

// Unbound is the declared-None sentinel. Variables used as for-targets or as
// dynamic dependency targets must be declared with this value.
func Unbound() Value {
	return Value{v: cty.NullVal(cty.DynamicPseudoType)}
}

// String wraps a scalar string.
func String(s string) Value {
	return Value{v: cty.StringVal(s)}
}

// Number wraps a scalar number given in its source text form.
func Number(text string) (Value, error) {
	v, err := cty.ParseNumberVal(text)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", text, err)
	}
	return Value{v: v}, nil
}

// Sequence wraps an ordered sequence of values.
func Sequence(elems []Value) Value {
	if len(elems) == 0 {
		return Value{v: cty.EmptyTupleVal}
	}
	inner := make([]cty.Value, len(elems))
	for i, e := range elems {
		inner[i] = e.v
	}
	return Value{v: cty.TupleVal(inner)}
}

// Pair is one mapping entry.
type Pair struct {
	Key string
	Val Value
}

// Mapping wraps an ordered set of key/value pairs. Later duplicates of a key
// overwrite earlier ones, as they do in a suite variable table.
func Mapping(pairs []Pair) Value {
	if len(pairs) == 0 {
		return Value{v: cty.EmptyObjectVal}
	}
	attrs := make(map[string]cty.Value, len(pairs))
	var keys []string
	for _, p := range pairs {
		if _, seen := attrs[p.Key]; !seen {
			keys = append(keys, p.Key)
		}
		attrs[p.Key] = p.Val.v
	}
	return Value{v: cty.ObjectVal(attrs), keys: keys}
}

// IsUnbound reports whether the value is the declared-None sentinel.
func (v Value) IsUnbound() bool {
	return v.v == cty.NilVal || v.v.IsNull()
}

// IsSequence reports whether the value is an ordered sequence.
func (v Value) IsSequence() bool {
	if v.IsUnbound() {
		return false
	}
	ty := v.v.Type()
	return ty.IsTupleType() || ty.IsListType()
}

// IsMapping reports whether the value is a mapping.
func (v Value) IsMapping() bool {
	if v.IsUnbound() {
		return false
	}
	ty := v.v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

// IsScalar reports whether the value is a plain string or number.
func (v Value) IsScalar() bool {
	return !v.IsUnbound() && !v.IsSequence() && !v.IsMapping()
}

// AsString renders a scalar as its string form. Numbers are normalized to
// their decimal representation, so ${42} becomes "42".
func (v Value) AsString() (string, error) {
	if !v.IsScalar() {
		return "", fmt.Errorf("value is not a scalar")
	}
	s, err := convert.Convert(v.v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// Elements returns the sequence elements in order.
func (v Value) Elements() []Value {
	if !v.IsSequence() {
		return nil
	}
	var elems []Value
	for it := v.v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		elems = append(elems, Value{v: ev})
	}
	return elems
}

// Pairs returns the mapping entries in declared order. Mappings constructed
// without declared order fall back to lexicographic key order.
func (v Value) Pairs() []Pair {
	if !v.IsMapping() {
		return nil
	}
	keys := v.keys
	if keys == nil {
		for name := range v.v.Type().AttributeTypes() {
			keys = append(keys, name)
		}
		sort.Strings(keys)
	}
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Val: Value{v: v.v.GetAttr(k)}})
	}
	return pairs
}

// Display renders any value as a single human-readable string, used when a
// composite value has to be injected into a child process or printed.
func (v Value) Display() string {
	switch {
	case v.IsUnbound():
		return "None"
	case v.IsSequence():
		var parts []string
		for _, e := range v.Elements() {
			parts = append(parts, e.Display())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case v.IsMapping():
		var parts []string
		for _, p := range v.Pairs() {
			parts = append(parts, p.Key+": "+p.Val.Display())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		s, err := v.AsString()
		if err != nil {
			return ""
		}
		return s
	}
}

// scalarize converts a scalar or unbound value for embedding in a larger
// string. Composite values cannot be embedded.
func (v Value) scalarize(name string) (string, error) {
	if v.IsUnbound() {
		return "", errdefs.NewVariableError(name, "variable has no value")
	}
	if !v.IsScalar() {
		return "", errdefs.NewVariableError(name, "a list or dictionary cannot be embedded in a string")
	}
	return v.AsString()
}
