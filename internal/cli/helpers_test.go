package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonquery/internal/store"
	"github.com/roach88/jsonquery/internal/testutil"
)

// activeUsersQuery selects active users' id and name, merged, in id order.
const activeUsersQuery = `{
	"fields": [{"table": "users", "fields": [{"field": "id"}, {"field": "name"}]}],
	"where": [{"table": "users", "conditions": [{"field": "active", "value": true}]}],
	"order_fields": [{"table": "users", "fields": [{"field": "id"}]}],
	"merge": true
}`

// seedDB creates a SQLite file holding the fixture tables and rows.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	st, err := store.Open("sqlite3", path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Exec(ctx, testutil.SchemaSQL))
	require.NoError(t, st.Exec(ctx, testutil.SeedSQL))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeRoot runs the full command tree with args.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
