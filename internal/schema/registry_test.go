package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Define("users",
		Column{Name: "id", Type: TypeInteger},
		Column{Name: "name", Type: TypeText},
		Column{Name: "active", Type: TypeBoolean},
	))
	require.NoError(t, reg.Define("orders",
		Column{Name: "id", Type: TypeInteger},
		Column{Name: "user_id", Type: TypeInteger},
		Column{Name: "total"},
	))
	return reg
}

func TestRegistryLookup(t *testing.T) {
	reg := usersRegistry(t)

	col, err := reg.Column("users", "name")
	require.NoError(t, err)
	assert.Equal(t, Column{Table: "users", Name: "name", Type: TypeText}, col)
	assert.Equal(t, "users.name", col.QualifiedName())

	total, err := reg.Column("orders", "total")
	require.NoError(t, err)
	assert.Equal(t, TypeAny, total.Type, "untyped columns default to any")

	assert.Equal(t, []string{"users", "orders"}, reg.Tables())
	assert.Equal(t, 2, reg.Len())

	users, err := reg.Table("users")
	require.NoError(t, err)
	names := make([]string, 0, len(users.Columns))
	for _, c := range users.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "name", "active"}, names)
}

func TestRegistryUnknownNames(t *testing.T) {
	reg := usersRegistry(t)

	_, err := reg.Column("invoices", "id")
	var tableErr *UnknownTableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, "invoices", tableErr.Table)

	_, err = reg.Column("users", "email")
	var colErr *UnknownColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "users", colErr.Table)
	assert.Equal(t, "email", colErr.Column)
}

func TestRegistryDefineRejects(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Define("users", Column{Name: "id"}))

	tests := []struct {
		name  string
		table string
		cols  []Column
	}{
		{"empty table name", "", []Column{{Name: "id"}}},
		{"duplicate table", "users", []Column{{Name: "id"}}},
		{"no columns", "empty", nil},
		{"empty column name", "t1", []Column{{Name: ""}}},
		{"duplicate column", "t2", []Column{{Name: "a"}, {Name: "a"}}},
		{"invalid type", "t3", []Column{{Name: "a", Type: "varchar"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, reg.Define(tt.table, tt.cols...))
		})
	}
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"INTEGER":                     TypeInteger,
		"bigint":                      TypeInteger,
		"VARCHAR(255)":                TypeText,
		"character varying":           TypeText,
		"TEXT":                        TypeText,
		"uuid":                        TypeText,
		"BOOLEAN":                     TypeBoolean,
		"bool":                        TypeBoolean,
		"REAL":                        TypeReal,
		"double precision":            TypeReal,
		"numeric(10,2)":               TypeReal,
		"BLOB":                        TypeBlob,
		"bytea":                       TypeBlob,
		"timestamp without time zone": TypeTimestamp,
		"DATETIME":                    TypeTimestamp,
		"":                            TypeAny,
		"geometry":                    TypeAny,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeType(in))
		})
	}
}

func TestParseCUE(t *testing.T) {
	reg, err := ParseCUE(`
table: users: {
	id:     "integer"
	name:   "text"
	active: "boolean"
}
table: orders: {
	id:      "integer"
	user_id: "integer"
}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, reg.Tables())

	col, err := reg.Column("users", "active")
	require.NoError(t, err)
	assert.Equal(t, TypeBoolean, col.Type)
}

func TestParseCUERejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `table: users: {`},
		{"invalid type", `table: users: id: "varchar"`},
		{"non-string type", `table: users: id: 5`},
		{"no tables", `columns: id: "integer"`},
		{"empty table", `table: users: {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCUE(tt.src)
			require.Error(t, err)
		})
	}
}

func TestParseCUESyntaxErrorPosition(t *testing.T) {
	_, err := ParseCUE("table: users: {\n\tid: \"integer\"\n")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, loadErr.Pos.IsValid())
	assert.Contains(t, loadErr.Error(), "schema.cue")
}

func TestLoadCUEFileAndDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "schema.cue")
	require.NoError(t, os.WriteFile(file, []byte(`package db

table: users: id: "integer"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.cue"), []byte(`package db

table: orders: id: "integer"
`), 0o644))

	single, err := LoadCUE(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, single.Tables())

	all, err := LoadCUE(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "orders"}, all.Tables())

	_, err = LoadCUE(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
