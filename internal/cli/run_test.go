package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonquery/internal/testutil"
)

type runResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	Data   struct {
		RunID       string           `json:"run_id"`
		Fingerprint string           `json:"fingerprint"`
		Merged      bool             `json:"merged"`
		Count       int              `json:"count"`
		Rows        []map[string]any `json:"rows"`
	} `json:"data"`
	Error *CLIError `json:"error"`
}

func TestRunCommandMergedJSON(t *testing.T) {
	db := seedDB(t)
	query := writeFile(t, t.TempDir(), "q.json", activeUsersQuery)

	out, _, err := executeRoot(t, "run", "--db", db, "--format", "json", query)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, resp.Data.RunID)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	assert.True(t, resp.Data.Merged)
	assert.Equal(t, 3, resp.Data.Count)

	var names []any
	for _, row := range resp.Data.Rows {
		names = append(names, row["name"])
	}
	assert.Equal(t, []any{"Alice", "Carol", "Dee"}, names)
}

func TestRunCommandText(t *testing.T) {
	db := seedDB(t)
	query := writeFile(t, t.TempDir(), "q.json", activeUsersQuery)

	out, _, err := executeRoot(t, "run", "--db", db, query)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Carol")
	assert.Contains(t, out, "Dee")
	assert.NotContains(t, out, "Bob")
	assert.Contains(t, out, "3 row(s)")
}

func TestRunCommandSectionedText(t *testing.T) {
	db := seedDB(t)
	query := writeFile(t, t.TempDir(), "q.json", `{
		"fields": [
			{"table": "users", "fields": [{"field": "name"}]},
			{"table": "orders", "fields": [{"field": "item"}]}
		],
		"join": [{"on": {"table": "orders", "field": "user_id"}, "joiner": {"table": "users", "field": "id"}}],
		"where": [{"table": "users", "conditions": [{"field": "name", "value": "Dee"}]}]
	}`)

	out, _, err := executeRoot(t, "run", "--db", db, query)
	require.NoError(t, err)
	assert.Contains(t, out, "users.name")
	assert.Contains(t, out, "Dee")
	assert.Contains(t, out, "1 row(s)")
}

func TestRunCommandStdin(t *testing.T) {
	db := seedDB(t)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(activeUsersQuery))
	cmd.SetArgs([]string{"run", "--db", db, "--format", "json", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"status":"ok"`)
}

func TestRunCommandFixedRunID(t *testing.T) {
	db := seedDB(t)
	query := writeFile(t, t.TempDir(), "q.json", activeUsersQuery)

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json", Driver: "sqlite3", Database: db},
		RunIDs:      testutil.NewFixedRunID("run-cli"),
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runQuery(opts, query, cmd))

	var resp runResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "run-cli", resp.RunID)
}

func TestRunCommandQueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"malformed", `{"fields": `, ErrCodeMalformedQuery},
		{"unknown operator", `{"fields": [{"table": "users"}], "where": [{"table": "users", "conditions": [{"field": "age", "value": 1, "operator": "like"}]}]}`, ErrCodeUnknownOperator},
		{"unknown column", `{"fields": [{"table": "users", "fields": [{"field": "salary"}]}]}`, ErrCodeUnknownColumn},
		{"invalid limit", `{"fields": [{"table": "users"}], "limit": {"start": 5, "end": 2}}`, ErrCodeInvalidLimit},
	}

	db := seedDB(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := writeFile(t, t.TempDir(), "q.json", tt.query)
			out, _, err := executeRoot(t, "run", "--db", db, "--format", "json", query)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp runResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRunCommandEnvironmentErrors(t *testing.T) {
	db := seedDB(t)
	query := writeFile(t, t.TempDir(), "q.json", activeUsersQuery)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing file", []string{"run", "--db", db, "/nonexistent/q.json"}, ErrCodeReadFailed},
		{"no database", []string{"run", query}, ErrCodeNoDatabase},
		{"bad driver", []string{"run", "--db", db, "--driver", "mysql", query}, ErrCodeDBFailed},
		{"bad schema", []string{"run", "--db", db, "--schema", "/nonexistent/schema.cue", query}, ErrCodeSchemaFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := executeRoot(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp runResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRunCommandMissingArgs(t *testing.T) {
	_, _, err := executeRoot(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
