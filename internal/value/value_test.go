package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	tbl.Set("scalar", String("val"))

	n, err := Number("42")
	require.NoError(t, err)
	tbl.Set("int_var", n)

	tbl.Set("list_var", Sequence([]Value{String("val1"), String("val2"), String("val3")}))
	tbl.Set("nested_list", Sequence([]Value{
		Sequence([]Value{String("val1.1"), String("val1.2")}),
		Sequence([]Value{String("val2.1"), String("val2.2")}),
	}))
	tbl.Set("dict_var", Mapping([]Pair{
		{Key: "k1", Val: String("v1")},
		{Key: "k2", Val: String("v2")},
	}))
	tbl.Set("target", Unbound())
	return tbl
}

func TestSubstitute(t *testing.T) {
	tbl := testTable(t)

	cases := []struct {
		token    string
		expected string
	}{
		{"plain", "plain"},
		{"some${scalar}", "someval"},
		{"${scalar}", "val"},
		{"$scalar", "val"},
		{"${int_var}", "42"},
		{"${42}", "42"},
		{"${EMPTY}", ""},
		{"a${scalar}b${int_var}", "avalb42"},
	}
	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			got, err := tbl.Substitute(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSubstitute_Errors(t *testing.T) {
	tbl := testTable(t)

	for _, token := range []string{
		"${missing}",
		"pre${missing}post",
		"embedded${list_var}",
		"${target}suffix",
	} {
		t.Run(token, func(t *testing.T) {
			_, err := tbl.Substitute(token)
			assert.Error(t, err)
		})
	}
}

func TestResolve_Shapes(t *testing.T) {
	tbl := testTable(t)

	v, err := tbl.Resolve("@{list_var}")
	require.NoError(t, err)
	require.True(t, v.IsSequence())
	assert.Len(t, v.Elements(), 3)

	v, err = tbl.Resolve("&{dict_var}")
	require.NoError(t, err)
	require.True(t, v.IsMapping())

	v, err = tbl.Resolve("${None}")
	require.NoError(t, err)
	assert.True(t, v.IsUnbound())

	// Sigil type mismatches.
	_, err = tbl.Resolve("@{scalar}")
	assert.Error(t, err)
	_, err = tbl.Resolve("&{list_var}")
	assert.Error(t, err)
}

func TestResolve_LookupIsCaseInsensitive(t *testing.T) {
	tbl := testTable(t)

	got, err := tbl.Substitute("${SCALAR}")
	require.NoError(t, err)
	assert.Equal(t, "val", got)
}

func TestExpandRefs(t *testing.T) {
	tbl := testTable(t)

	// Non-reference tokens pass through verbatim; only whole-token
	// references are expanded at this point.
	out, err := tbl.ExpandRefs([]string{
		"one", "partial${scalar}", "${scalar}", "${int_var}", "@{list_var}",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "partial${scalar}", "val", "42", "val1", "val2", "val3"}, out)
}

func TestExpandRefs_MappingYieldsValuesInDeclaredOrder(t *testing.T) {
	tbl := testTable(t)

	out, err := tbl.ExpandRefs([]string{"&{dict_var}"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, out)
}

func TestExpandRefs_NestedListFails(t *testing.T) {
	tbl := testTable(t)

	_, err := tbl.ExpandRefs([]string{"@{nested_list}"})
	assert.Error(t, err)
}

func TestResolve_IsPure(t *testing.T) {
	tbl := testTable(t)

	first, err := tbl.ExpandRefs([]string{"one", "${scalar}", "@{list_var}"})
	require.NoError(t, err)
	second, err := tbl.ExpandRefs([]string{"one", "${scalar}", "@{list_var}"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOverlay(t *testing.T) {
	tbl := testTable(t)
	over := tbl.Overlay([]Binding{{Name: "target", Val: String("bound")}})

	got, err := over.Substitute("${target}")
	require.NoError(t, err)
	assert.Equal(t, "bound", got)

	// The base table is untouched.
	v, err := tbl.Resolve("${target}")
	require.NoError(t, err)
	assert.True(t, v.IsUnbound())
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "val", String("val").Display())
	assert.Equal(t, "[a, b]", Sequence([]Value{String("a"), String("b")}).Display())
	assert.Equal(t, "{k: v}", Mapping([]Pair{{Key: "k", Val: String("v")}}).Display())
	assert.Equal(t, "None", Unbound().Display())
}
