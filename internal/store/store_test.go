package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/querysql"
	"github.com/roach88/jsonquery/internal/schema"
	"github.com/roach88/jsonquery/internal/testutil"
)

// createTestStore opens a seeded fixture database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, testutil.SchemaSQL))
	require.NoError(t, s.Exec(ctx, testutil.SeedSQL))
	return s
}

func col(t *testing.T, reg *schema.Registry, table, field string) schema.Column {
	t.Helper()
	c, err := reg.Column(table, field)
	require.NoError(t, err)
	return c
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open("sqlite3", path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, "sqlite3", s.Driver())
	assert.Equal(t, querysql.SQLite, s.Dialect())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("sqlite3", filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestSchema_Introspection(t *testing.T) {
	s := createTestStore(t)

	reg, err := s.Schema(context.Background())
	require.NoError(t, err)

	// Tables are listed by name.
	assert.Equal(t, []string{"orders", "users"}, reg.Tables())

	want := testutil.Registry(t)
	for _, table := range want.Tables() {
		expected, err := want.Table(table)
		require.NoError(t, err)
		got, err := reg.Table(table)
		require.NoError(t, err)
		assert.Equal(t, expected.Columns, got.Columns, "table %s", table)
	}
}

func TestExecute_SectionsAndTypes(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)
	exec := NewExecutor(s, reg)

	rows, err := exec.Execute(context.Background(), queryir.Select{
		Projections: []queryir.Projection{
			queryir.Column{Ref: col(t, reg, "users", "name")},
			queryir.Column{Ref: col(t, reg, "users", "active")},
			queryir.Column{Ref: col(t, reg, "users", "email")},
		},
		Filter:  queryir.Compare{Column: col(t, reg, "users", "id"), Op: queryir.OpLte, Value: ir.Int(2)},
		OrderBy: []queryir.OrderKey{{Column: col(t, reg, "users", "id")}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ir.Row{"users": ir.Object{
		"name":   ir.String("Alice"),
		"active": ir.Bool(true),
		"email":  ir.String("alice@example.com"),
	}}, rows[0])
	assert.Equal(t, ir.Row{"users": ir.Object{
		"name":   ir.String("Bob"),
		"active": ir.Bool(false),
		"email":  ir.Null{},
	}}, rows[1])
}

func TestExecute_LeftJoinMissIsNilSection(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)
	exec := NewExecutor(s, reg)

	rows, err := exec.Execute(context.Background(), queryir.Select{
		Projections: []queryir.Projection{
			queryir.Column{Ref: col(t, reg, "users", "name")},
			queryir.Column{Ref: col(t, reg, "orders", "item")},
		},
		Joins: []queryir.LeftJoin{{
			Table: "orders",
			On:    queryir.ColumnEquals{Left: col(t, reg, "orders", "user_id"), Right: col(t, reg, "users", "id")},
		}},
		Filter: queryir.Compare{Column: col(t, reg, "users", "name"), Op: queryir.OpEq, Value: ir.String("Dee")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, ir.Object{"name": ir.String("Dee")}, rows[0]["users"])
	section, present := rows[0]["orders"]
	assert.True(t, present)
	assert.Nil(t, section)
}

func TestExecute_CountInExtraSection(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)
	exec := NewExecutor(s, reg)

	name := col(t, reg, "users", "name")
	rows, err := exec.Execute(context.Background(), queryir.Select{
		Projections: []queryir.Projection{
			queryir.Column{Ref: name},
			queryir.Column{Ref: col(t, reg, "orders", "id"), Count: true, Alias: "orders"},
		},
		Joins: []queryir.LeftJoin{{
			Table: "orders",
			On:    queryir.ColumnEquals{Left: col(t, reg, "orders", "user_id"), Right: col(t, reg, "users", "id")},
		}},
		GroupBy: []schema.Column{name},
		OrderBy: []queryir.OrderKey{{Column: name}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, ir.Object{"COUNT(orders.id) AS orders": ir.Int(2)}, rows[0][queryir.ExtraSection])
	assert.Equal(t, ir.Object{"COUNT(orders.id) AS orders": ir.Int(0)}, rows[3][queryir.ExtraSection])
	assert.Equal(t, ir.String("Dee"), rows[3]["users"]["name"])
}

func TestExecute_WildcardAndRealValues(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)
	exec := NewExecutor(s, reg)

	rows, err := exec.Execute(context.Background(), queryir.Select{
		Projections: []queryir.Projection{queryir.Wildcard{Table: "orders"}},
		Filter:      queryir.Compare{Column: col(t, reg, "orders", "id"), Op: queryir.OpEq, Value: ir.Int(11)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Object{
		"id":      ir.Int(11),
		"user_id": ir.Int(1),
		"item":    ir.String("desk"),
		"total":   ir.Float(150),
	}, rows[0]["orders"])
}

func TestExecute_EmptyResult(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)

	rows, err := NewExecutor(s, reg).Execute(context.Background(), queryir.Select{
		Projections: []queryir.Projection{queryir.Column{Ref: col(t, reg, "users", "id")}},
		Filter:      queryir.Compare{Column: col(t, reg, "users", "age"), Op: queryir.OpGt, Value: ir.Int(200)},
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecute_CompileErrorNotExecuted(t *testing.T) {
	s := createTestStore(t)
	_, err := NewExecutor(s, testutil.Registry(t)).Execute(context.Background(), queryir.Select{})
	assert.Error(t, err)
}

func TestExecute_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	reg := testutil.Registry(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(s, reg).Execute(ctx, queryir.Select{
		Projections: []queryir.Projection{queryir.Column{Ref: col(t, reg, "users", "id")}},
	})
	assert.Error(t, err)
}

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  string
		want ir.Value
	}{
		{"null", nil, schema.TypeText, ir.Null{}},
		{"int", int64(3), schema.TypeInteger, ir.Int(3)},
		{"int as bool", int64(1), schema.TypeBoolean, ir.Bool(true)},
		{"float", 2.5, schema.TypeReal, ir.Float(2.5)},
		{"bytes text", []byte("hi"), schema.TypeText, ir.String("hi")},
		{"blob", []byte{0xff, 0x00}, schema.TypeBlob, ir.String("/wA=")},
		{"numeric text", "12.50", schema.TypeReal, ir.Float(12.5)},
		{"bool text", "true", schema.TypeBoolean, ir.Bool(true)},
		{"untyped text", "12", schema.TypeAny, ir.String("12")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCell(tt.raw, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodeCell(struct{}{}, schema.TypeAny)
	assert.Error(t, err)
}
