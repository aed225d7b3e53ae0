package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonquery/internal/testutil"
)

func TestServeRequiresDatabase(t *testing.T) {
	out, _, err := executeRoot(t, "serve", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoDatabase, resp.Error.Code)
}

// The schema comes from a file: introspection would fail on a done context.
func TestServeStopsWhenContextDone(t *testing.T) {
	db := seedDB(t)
	schemaFile := writeFile(t, t.TempDir(), "schema.cue", testutil.SchemaCUE)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--db", db, "--schema", schemaFile, "--addr", "127.0.0.1:0", "--shutdown-timeout", "1s"})

	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestServeAddrFromEnvironment(t *testing.T) {
	db := seedDB(t)
	schemaFile := writeFile(t, t.TempDir(), "schema.cue", testutil.SchemaCUE)
	t.Setenv("JSONQUERY_ADDR", "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	errOut := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"serve", "--db", db, "--schema", schemaFile})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, errOut.String(), "addr=127.0.0.1:0")
}
