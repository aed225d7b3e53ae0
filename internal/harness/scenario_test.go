package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
schema: |
  table: users: {id: "integer", name: "text"}
setup:
  - CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)
query:
  fields:
    - table: users
      fields: [{field: name}]
  limit: {start: 0, end: 5}
expect:
  count: 0
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Setup, 1)
	require.NotNil(t, scenario.Expect.Count)
	assert.Equal(t, 0, *scenario.Expect.Count)

	query, err := scenario.QueryJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields": [{"table": "users", "fields": [{"field": "name"}]}], "limit": {"start": 0, "end": 5}}`, string(query))
}

func TestLoadScenario_ResolvesSchemaFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(`table: t: {id: "integer"}`), 0644))
	path := writeScenario(t, dir, `
name: with_file
description: "schema from file"
schema_file: schema.cue
query: {fields: [{table: t}]}
expect: {count: 0}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema.cue"), scenario.SchemaFile)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingSchemaFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: test
description: "Test"
schema_file: nope.cue
query: {fields: [{table: t}]}
expect: {count: 0}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema file not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nquery: {fields: [{table: t}]}\nexpect: {count: 0}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nquery: {fields: [{table: t}]}\nexpect: {count: 0}\n",
			wantErr: "description is required",
		},
		{
			name:    "missing query",
			content: "name: n\ndescription: d\nexpect: {count: 0}\n",
			wantErr: "query is required",
		},
		{
			name:    "empty expect",
			content: "name: n\ndescription: d\nquery: {fields: [{table: t}]}\n",
			wantErr: "one of count, rows or error is required",
		},
		{
			name:    "unknown error code",
			content: "name: n\ndescription: d\nquery: {fields: [{table: t}]}\nexpect: {error: OOPS}\n",
			wantErr: "unknown error code",
		},
		{
			name:    "error with rows",
			content: "name: n\ndescription: d\nquery: {fields: [{table: t}]}\nexpect: {error: UNKNOWN_COLUMN, count: 1}\n",
			wantErr: "cannot be combined",
		},
		{
			name:    "count disagrees with rows",
			content: "name: n\ndescription: d\nquery: {fields: [{table: t}]}\nexpect: {count: 2, rows: [{id: 1}]}\n",
			wantErr: "disagrees",
		},
		{
			name:    "schema and schema_file",
			content: "name: n\ndescription: d\nschema: x\nschema_file: y\nquery: {fields: [{table: t}]}\nexpect: {count: 0}\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "empty setup statement",
			content: "name: n\ndescription: d\nsetup: ['']\nquery: {fields: [{table: t}]}\nexpect: {count: 0}\n",
			wantErr: "setup[0]",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\nquery: {fields: [{table: t}]}\nexpects: {count: 0}\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "malformed yaml",
			content: "name: [unclosed\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
