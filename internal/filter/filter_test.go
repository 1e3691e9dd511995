package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/medusa/internal/suite"
)

func testRun(stage string, static []string, dynamic ...suite.DynChoice) *suite.Run {
	return &suite.Run{
		Name:  "run",
		Stage: stage,
		Deps:  suite.DepSpec{Static: static, Dynamic: dynamic},
	}
}

func TestNew_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"bogus=one"},
		{"stage~one"},
		{"deps=one", "deps~two"},
		{"deps=!"},
		{"deps=a b"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, err := New(args)
			assert.Error(t, err)
		})
	}
}

func TestMatch_NoFiltersAcceptsEverything(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"x"})))
}

func TestMatch_StageInclusionAndExclusion(t *testing.T) {
	f, err := New([]string{"stage=first,second"})
	require.NoError(t, err)
	assert.True(t, f.MatchAndNarrow(testRun("first", nil)))
	assert.True(t, f.MatchAndNarrow(testRun("second", nil)))
	assert.False(t, f.MatchAndNarrow(testRun("third", nil)))

	f, err = New([]string{"stage=!first"})
	require.NoError(t, err)
	assert.False(t, f.MatchAndNarrow(testRun("first", nil)))
	assert.True(t, f.MatchAndNarrow(testRun("second", nil)))
}

func TestMatch_DepsOnly(t *testing.T) {
	// 'deps=' means the suite may not use anything outside the listed deps.
	f, err := New([]string{"deps=one,two"})
	require.NoError(t, err)

	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"one"})))
	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"one", "two"})))
	assert.False(t, f.MatchAndNarrow(testRun("0", []string{"one", "three"})))
}

func TestMatch_DepsOnlyNarrowsDynamicPools(t *testing.T) {
	f, err := New([]string{"deps=one,two"})
	require.NoError(t, err)

	r := testRun("0", nil, suite.DynChoice{Var: "V", Options: []string{"three", "one"}})
	require.True(t, f.MatchAndNarrow(r))
	assert.Equal(t, []string{"one"}, r.Deps.Dynamic[0].Options)

	r = testRun("0", nil, suite.DynChoice{Var: "V", Options: []string{"three"}})
	assert.False(t, f.MatchAndNarrow(r))
}

func TestMatch_DepsOnlyRejectsUnassignableCombination(t *testing.T) {
	// Both pools narrow to the same single dep; greedy binding cannot give
	// each choice its own value.
	f, err := New([]string{"deps=one"})
	require.NoError(t, err)

	r := testRun("0", nil,
		suite.DynChoice{Var: "A", Options: []string{"one", "two"}},
		suite.DynChoice{Var: "B", Options: []string{"one", "three"}},
	)
	assert.False(t, f.MatchAndNarrow(r))
}

func TestMatch_DepsAny(t *testing.T) {
	// 'deps~' requires an overlap with the listed deps; static only.
	f, err := New([]string{"deps~one,two"})
	require.NoError(t, err)

	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"one", "other"})))
	assert.False(t, f.MatchAndNarrow(testRun("0", []string{"other"})))
	assert.False(t, f.MatchAndNarrow(testRun("0", nil,
		suite.DynChoice{Var: "V", Options: []string{"one"}})))
}

func TestMatch_DepsExclusion(t *testing.T) {
	f, err := New([]string{"deps=!two,!three"})
	require.NoError(t, err)

	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"one"})))
	assert.False(t, f.MatchAndNarrow(testRun("0", []string{"one", "two"})))

	// Excluded deps are removed from dynamic pools.
	r := testRun("0", []string{"one"}, suite.DynChoice{Var: "V", Options: []string{"two", "four"}})
	require.True(t, f.MatchAndNarrow(r))
	assert.Equal(t, []string{"four"}, r.Deps.Dynamic[0].Options)

	r = testRun("0", nil, suite.DynChoice{Var: "V", Options: []string{"two", "three"}})
	assert.False(t, f.MatchAndNarrow(r))
}

func TestMatch_AnyWithExclusion(t *testing.T) {
	f, err := New([]string{"deps~one,!two"})
	require.NoError(t, err)

	assert.True(t, f.MatchAndNarrow(testRun("0", []string{"one"})))
	assert.False(t, f.MatchAndNarrow(testRun("0", []string{"one", "two"})))
}
