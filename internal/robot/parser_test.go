package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/medusa/internal/meta"
)

const variablesFixture = `*** Settings ***
Documentation    Exercises variable resolution in medusa metadata.
Metadata    medusa:stage    my${STAGE}
Metadata    medusa:deps    plain    ${SCALAR_STRING}    ${SCALAR_NUMBER}
...    @{LIST}

*** Variables ***
${SCALAR_STRING}    hello
${SCALAR_NUMBER}    ${42}
@{LIST}    one    two    ${3}
${STAGE}    Special_Stage
@{L1}    one    two    three
@{L2}    a    b    c
@{LIST_OF_LISTS}    ${L1}    ${L2}
&{RUNS}    working=2s    broken=10s
${TARGET}    ${None}

*** Test Cases ***
First Test
    [Tags]    smoke    fast
    Log    message
Second Test
    No Operation
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFile(t *testing.T) {
	// --- Arrange ---
	path := writeFixture(t, "variables.robot", variablesFixture)

	// --- Act ---
	file, err := ParseFile(path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "Variables", file.Name)

	require.Len(t, file.Metadata, 2)
	assert.Equal(t, meta.Item{Key: "medusa:stage", Value: "my${STAGE}"}, file.Metadata[0])
	assert.Equal(t, "medusa:deps", file.Metadata[1].Key)
	// The continuation row folds into the same entry.
	assert.Equal(t, "plain    ${SCALAR_STRING}    ${SCALAR_NUMBER}    @{LIST}", file.Metadata[1].Value)

	s, err := file.Vars.Substitute("${SCALAR_STRING}")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = file.Vars.Substitute("${SCALAR_NUMBER}")
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	list, err := file.Vars.Resolve("@{LIST}")
	require.NoError(t, err)
	require.True(t, list.IsSequence())
	require.Len(t, list.Elements(), 3)
	last, err := list.Elements()[2].AsString()
	require.NoError(t, err)
	assert.Equal(t, "3", last)

	nested, err := file.Vars.Resolve("@{LIST_OF_LISTS}")
	require.NoError(t, err)
	require.Len(t, nested.Elements(), 2)
	assert.True(t, nested.Elements()[0].IsSequence())

	dict, err := file.Vars.Resolve("&{RUNS}")
	require.NoError(t, err)
	pairs := dict.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "working", pairs[0].Key)
	assert.Equal(t, "broken", pairs[1].Key)

	target, err := file.Vars.Resolve("${TARGET}")
	require.NoError(t, err)
	assert.True(t, target.IsUnbound())

	require.Len(t, file.Tests, 2)
	assert.Equal(t, "First Test", file.Tests[0].Name)
	assert.Equal(t, []string{"smoke", "fast"}, file.Tests[0].Tags)
	assert.Empty(t, file.Tests[1].Tags)
}

func TestParseFile_CommentsAndUnknownSectionsIgnored(t *testing.T) {
	path := writeFixture(t, "misc.robot", `# leading comment
*** Settings ***
Metadata    medusa:stage    0
# a comment row
Metadata    medusa:deps    one

*** Keywords ***
Some Keyword
    Log    not parsed

*** Test Cases ***
Only Test
    Some Keyword
`)

	file, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Metadata, 2)
	require.Len(t, file.Tests, 1)
	assert.Equal(t, "Only Test", file.Tests[0].Name)
}

func TestParseFile_UnresolvableVariableFails(t *testing.T) {
	path := writeFixture(t, "broken.robot", `*** Variables ***
${X}    ${UNDEFINED_REF}
`)
	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestParseFile_InvalidDictEntryFails(t *testing.T) {
	path := writeFixture(t, "broken.robot", `*** Variables ***
&{D}    novalue
`)
	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestSuiteName(t *testing.T) {
	assert.Equal(t, "Variables", SuiteName("tests/robot/variables.robot"))
	assert.Equal(t, "Dynamic Deps", SuiteName("dynamic_deps.robot"))
	assert.Equal(t, "My Suite", SuiteName("01__my_suite.robot"))
	assert.Equal(t, "MixedCase", SuiteName("MixedCase.robot"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, name := range []string{"b.robot", "a.robot", "__init__.robot", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(sub, name), nil, 0o644))
	}

	found, err := Discover([]string{dir})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, filepath.Join(sub, "a.robot"), found[0])
	assert.Equal(t, filepath.Join(sub, "b.robot"), found[1])
}

func TestDiscover_MissingPathFails(t *testing.T) {
	_, err := Discover([]string{"does/not/exist"})
	assert.Error(t, err)
}
