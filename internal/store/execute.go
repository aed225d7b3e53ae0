package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/querysql"
	"github.com/roach88/jsonquery/internal/schema"
)

// Executor runs query descriptors against a Store.
type Executor struct {
	store    *Store
	compiler *querysql.SQLCompiler
}

// NewExecutor creates an executor. The registry expands wildcards and
// types result cells.
func NewExecutor(s *Store, reg *schema.Registry) *Executor {
	return &Executor{store: s, compiler: querysql.NewSQLCompiler(s.dialect, reg)}
}

// Compile returns the statement Execute would run.
func (e *Executor) Compile(q queryir.Select) (*querysql.Statement, error) {
	return e.compiler.Compile(q)
}

// Execute compiles and runs the descriptor, returning sectioned rows in
// database order. An empty result is an empty, non-nil slice.
func (e *Executor) Execute(ctx context.Context, q queryir.Select) ([]ir.Row, error) {
	stmt, err := e.compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	e.store.logger.Debug("executing query", "sql", stmt.SQL, "params", len(stmt.Params))

	rows, err := e.store.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	joined := make(map[string]bool, len(q.Joins))
	for _, j := range q.Joins {
		joined[j.Table] = true
	}

	var out []ir.Row
	cells := make([]any, len(stmt.Columns))
	dest := make([]any, len(stmt.Columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := buildRow(stmt.Columns, cells, joined)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if out == nil {
		out = []ir.Row{}
	}
	return out, nil
}

// buildRow groups cells into sections. A joined table section with only
// NULL cells becomes nil.
func buildRow(columns []querysql.ResultColumn, cells []any, joined map[string]bool) (ir.Row, error) {
	row := make(ir.Row)
	nonNull := make(map[string]bool)

	for i, col := range columns {
		v, err := decodeCell(cells[i], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", col.Section, col.Key, err)
		}
		section, ok := row[col.Section]
		if !ok {
			section = make(ir.Object)
			row[col.Section] = section
		}
		section[col.Key] = v
		if !ir.IsNull(v) {
			nonNull[col.Section] = true
		}
	}

	for name := range row {
		if joined[name] && !nonNull[name] {
			row[name] = nil
		}
	}
	return row, nil
}

// decodeCell converts a database/sql cell to an ir.Value.
func decodeCell(raw any, typ string) (ir.Value, error) {
	switch v := raw.(type) {
	case nil:
		return ir.Null{}, nil
	case int64:
		if typ == schema.TypeBoolean {
			return ir.Bool(v != 0), nil
		}
		return ir.Int(v), nil
	case float64:
		return ir.FromGo(v)
	case bool:
		return ir.Bool(v), nil
	case time.Time:
		return ir.String(v.UTC().Format(time.RFC3339Nano)), nil
	case []byte:
		return decodeText(string(v), typ, v)
	case string:
		return decodeText(v, typ, []byte(v))
	default:
		return nil, fmt.Errorf("unsupported cell type %T", raw)
	}
}

func decodeText(s, typ string, b []byte) (ir.Value, error) {
	switch typ {
	case schema.TypeBlob:
		return ir.String(base64.StdEncoding.EncodeToString(b)), nil
	case schema.TypeReal:
		// pgx returns numeric as text.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ir.FromGo(f)
		}
	case schema.TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.Int(n), nil
		}
	case schema.TypeBoolean:
		if bv, err := strconv.ParseBool(s); err == nil {
			return ir.Bool(bv), nil
		}
	}
	return ir.String(s), nil
}
