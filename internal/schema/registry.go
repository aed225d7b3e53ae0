// Package schema holds the table and column registry the translator
// resolves query names against.
//
// A Registry is built once, from a CUE schema file or by introspecting the
// connected database, and is read-only afterwards. Lookups never build SQL
// from names the registry does not know.
package schema

import (
	"fmt"
	"strings"
)

// Column types understood by the registry. Database type names are
// normalized to one of these with NormalizeType.
const (
	TypeInteger   = "integer"
	TypeReal      = "real"
	TypeText      = "text"
	TypeBoolean   = "boolean"
	TypeBlob      = "blob"
	TypeTimestamp = "timestamp"
	TypeAny       = "any"
)

var validTypes = map[string]bool{
	TypeInteger:   true,
	TypeReal:      true,
	TypeText:      true,
	TypeBoolean:   true,
	TypeBlob:      true,
	TypeTimestamp: true,
	TypeAny:       true,
}

// IsValidType reports whether t is one of the registry column types.
func IsValidType(t string) bool {
	return validTypes[t]
}

// Column is one column handle.
type Column struct {
	Table string
	Name  string
	Type  string
}

// QualifiedName returns "table.column".
func (c Column) QualifiedName() string {
	return c.Table + "." + c.Name
}

// Table is a named, ordered column list.
type Table struct {
	Name    string
	Columns []Column
	index   map[string]int
}

// Column returns the named column of the table.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// UnknownTableError is returned for a table the registry does not know.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Table)
}

// UnknownColumnError is returned for a column missing from a known table.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q in table %q", e.Column, e.Table)
}

// Registry maps table names to their columns. Define is not safe for
// concurrent use; lookups are safe once the registry is built.
type Registry struct {
	tables map[string]*Table
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Define adds a table. Column order is kept for wildcard expansion.
func (r *Registry) Define(table string, columns ...Column) error {
	if table == "" {
		return fmt.Errorf("table name is required")
	}
	if _, exists := r.tables[table]; exists {
		return fmt.Errorf("table %q already defined", table)
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %q has no columns", table)
	}

	t := &Table{Name: table, index: make(map[string]int, len(columns))}
	for _, col := range columns {
		if col.Name == "" {
			return fmt.Errorf("table %q: column name is required", table)
		}
		if _, dup := t.index[col.Name]; dup {
			return fmt.Errorf("table %q: duplicate column %q", table, col.Name)
		}
		if col.Type == "" {
			col.Type = TypeAny
		}
		if !IsValidType(col.Type) {
			return fmt.Errorf("table %q column %q: invalid type %q", table, col.Name, col.Type)
		}
		col.Table = table
		t.index[col.Name] = len(t.Columns)
		t.Columns = append(t.Columns, col)
	}

	r.tables[table] = t
	r.order = append(r.order, table)
	return nil
}

// Table returns the named table.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, &UnknownTableError{Table: name}
	}
	return t, nil
}

// Column resolves table.field to a column handle.
func (r *Registry) Column(table, field string) (Column, error) {
	t, err := r.Table(table)
	if err != nil {
		return Column{}, err
	}
	col, ok := t.Column(field)
	if !ok {
		return Column{}, &UnknownColumnError{Table: table, Column: field}
	}
	return col, nil
}

// Tables returns table names in definition order.
func (r *Registry) Tables() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of tables.
func (r *Registry) Len() int {
	return len(r.order)
}

// NormalizeType maps a database column type name to a registry type using
// SQLite's affinity rules, extended with the PostgreSQL names
// information_schema reports.
func NormalizeType(dbType string) string {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case t == "":
		return TypeAny
	case strings.HasPrefix(t, "bool"):
		return TypeBoolean
	case strings.HasPrefix(t, "timestamp"), t == "date", t == "datetime", strings.HasPrefix(t, "time"):
		return TypeTimestamp
	case strings.Contains(t, "int"):
		return TypeInteger
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"), t == "uuid", t == "json", t == "jsonb":
		return TypeText
	case strings.Contains(t, "blob"), t == "bytea":
		return TypeBlob
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"),
		strings.HasPrefix(t, "numeric"), strings.HasPrefix(t, "decimal"):
		return TypeReal
	default:
		return TypeAny
	}
}
