package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

// copyScenario copies a harness scenario file into dir.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, name))
	require.NoError(t, err)
	return writeFile(t, dir, name, string(data))
}

func TestTestCommandMissingArgs(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{harnessScenarios})

	require.NoError(t, cmd.Execute(), buf.String())
	assert.Contains(t, buf.String(), "✓ active_users")
	assert.Contains(t, buf.String(), "✓ unknown_column")
	assert.Contains(t, buf.String(), "0 failed")
}

func TestTestCommandFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{harnessScenarios, "--filter", "order*"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, s.Pass, s.Name)
		assert.Equal(t, "missing", s.Golden)
	}
}

func TestTestCommandInvalidFilter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{harnessScenarios, "--filter", "["})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "active_users.yaml")

	update := NewTestCommand(&RootOptions{Format: "text"})
	buf := &bytes.Buffer{}
	update.SetOut(buf)
	update.SetArgs([]string{dir, "--update"})
	require.NoError(t, update.Execute())
	assert.Contains(t, buf.String(), "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "active_users.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/active_users.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	compare := NewTestCommand(&RootOptions{Format: "json"})
	buf = &bytes.Buffer{}
	compare.SetOut(buf)
	compare.SetArgs([]string{dir})
	require.NoError(t, compare.Execute())
	assert.Contains(t, buf.String(), `"golden": "match"`)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "active_users.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "active_users.golden", `{"stale":true}`)

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ active_users")
	assert.Contains(t, buf.String(), "does not match golden file")
	assert.Contains(t, buf.String(), "1 failed")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_count.yaml", `name: wrong_count
description: "expects more users than exist"
schema: |
  table: users: {id: "integer", name: "text"}
setup:
  - "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT); INSERT INTO users VALUES (1, 'Alice');"
query:
  fields:
    - table: users
expect:
  count: 5
`)

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "count: expected 5, got 1")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "x.golden"), goldenFilePath(filepath.Join("a", "b", "x.yaml")))
}
