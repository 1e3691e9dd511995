package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodSuite = `*** Settings ***
Metadata    medusa:stage    first
Metadata    medusa:deps    net    ANY ${PORT} IN ${PORTS}

*** Variables ***
${PORT}    ${None}
@{PORTS}    8080    8081

*** Test Cases ***
Ping
    [Tags]    smoke
    No Operation
`

const brokenSuite = `*** Settings ***
Metadata    medusa:deps    net

*** Test Cases ***
Nope
    No Operation
`

func writeSuites(t *testing.T, suites map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range suites {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestApp(t *testing.T, cfg Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	a, err := New(&out, &errOut, cfg)
	require.NoError(t, err)
	return a, &out, &errOut
}

func TestStats_EndToEnd(t *testing.T) {
	// --- Arrange ---
	dir := writeSuites(t, map[string]string{"ping.robot": goodSuite})
	a, out, _ := newTestApp(t, Config{SuitePaths: []string{dir}, Select: "all"})

	// --- Act ---
	err := a.Stats(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Suites: 1")
	assert.Contains(t, out.String(), "Tests: 1")
	assert.Contains(t, out.String(), "net: 1 Suite (static: 1, dynamic: 0)")
	assert.Contains(t, out.String(), "8080: 1 Suite (static: 0, dynamic: 1)")
	assert.Contains(t, out.String(), "smoke: 1 Test")
}

func TestStats_RejectedSuiteIsReportedButOthersSurvive(t *testing.T) {
	dir := writeSuites(t, map[string]string{
		"ping.robot":   goodSuite,
		"broken.robot": brokenSuite,
	})
	a, out, errOut := newTestApp(t, Config{SuitePaths: []string{dir}, Select: "totals"})

	err := a.Stats(context.Background())

	assert.Error(t, err, "a rejected suite must surface in the exit status")
	assert.Contains(t, errOut.String(), "Medusa Errors:")
	assert.Contains(t, errOut.String(), "medusa:stage")
	assert.Contains(t, out.String(), "Suites: 1", "the healthy suite still counts")
}

func TestStats_FilterNarrows(t *testing.T) {
	dir := writeSuites(t, map[string]string{"ping.robot": goodSuite})
	a, out, _ := newTestApp(t, Config{
		SuitePaths: []string{dir},
		Filters:    []string{"stage=other"},
		Select:     "totals",
	})

	require.NoError(t, a.Stats(context.Background()))
	assert.Contains(t, out.String(), "Suites: 0")
}

func TestRun_FailsWhenOutputDirExists(t *testing.T) {
	dir := writeSuites(t, map[string]string{"ping.robot": goodSuite})
	outDir := t.TempDir()
	a, _, _ := newTestApp(t, Config{SuitePaths: []string{dir}, OutputDir: outDir})

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_FailsWithoutRuns(t *testing.T) {
	dir := writeSuites(t, map[string]string{})
	a, _, _ := newTestApp(t, Config{
		SuitePaths: []string{dir},
		OutputDir:  filepath.Join(t.TempDir(), "results"),
	})

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runs")
}

func TestNew_Validation(t *testing.T) {
	var out, errOut bytes.Buffer

	_, err := New(&out, &errOut, Config{})
	assert.Error(t, err, "suite paths are required")

	_, err = New(&out, &errOut, Config{SuitePaths: []string{"x"}, Filters: []string{"nope"}})
	assert.Error(t, err)

	_, err = New(&out, &errOut, Config{SuitePaths: []string{"x"}, Timeout: "bogus"})
	assert.Error(t, err)
}
