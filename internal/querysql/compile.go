package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/schema"
)

// ResultColumn describes one column of the compiled select list: the row
// section and key its value is stored under, and the registry type used to
// decode it.
type ResultColumn struct {
	Section string
	Key     string
	Type    string
	Count   bool
}

// Statement is a compiled query.
type Statement struct {
	SQL     string
	Params  []any
	Columns []ResultColumn
}

// SQLCompiler compiles query descriptors to parameterized SQL.
//
// CRITICAL: All values are parameterized (never interpolated), including
// LIKE patterns and the LIMIT window. Identifiers come only from the
// schema registry and are always quoted.
type SQLCompiler struct {
	Dialect Dialect
	Schema  *schema.Registry
}

// NewSQLCompiler creates a compiler. The registry expands wildcards.
func NewSQLCompiler(d Dialect, reg *schema.Registry) *SQLCompiler {
	return &SQLCompiler{Dialect: d, Schema: reg}
}

// builder accumulates bind parameters so placeholders stay numbered in
// statement order.
type builder struct {
	d      Dialect
	params []any
}

func (b *builder) bind(v any) string {
	b.params = append(b.params, v)
	return b.d.Placeholder(len(b.params))
}

func (b *builder) column(c schema.Column) string {
	return b.d.QuoteIdent(c.Table) + "." + b.d.QuoteIdent(c.Name)
}

// Compile converts a descriptor to SQL. Descriptors with blocking
// validation issues are rejected.
func (c *SQLCompiler) Compile(q queryir.Select) (*Statement, error) {
	if errs := queryir.Errors(queryir.Validate(q)); len(errs) > 0 {
		return nil, fmt.Errorf("invalid query descriptor: %w", errs[0])
	}

	b := &builder{d: c.Dialect}
	var sb strings.Builder

	selectList, columns, err := c.compileProjections(b, q.Projections)
	if err != nil {
		return nil, err
	}

	orderBy := q.OrderBy
	groupBy := q.GroupBy

	sb.WriteString("SELECT ")
	if q.Distinct != nil {
		if c.Dialect.numbered {
			sb.WriteString("DISTINCT ON (" + b.column(*q.Distinct) + ") ")
			orderBy = prependOrder(orderBy, *q.Distinct)
		} else {
			groupBy = prependGroup(groupBy, *q.Distinct)
		}
	}
	sb.WriteString(strings.Join(selectList, ", "))

	sources := q.Sources()
	quoted := make([]string, len(sources))
	for i, s := range sources {
		quoted[i] = c.Dialect.QuoteIdent(s)
	}
	sb.WriteString(" FROM " + strings.Join(quoted, ", "))

	for _, j := range q.Joins {
		on, err := c.compilePredicate(b, j.On)
		if err != nil {
			return nil, fmt.Errorf("compile join %s: %w", j.Table, err)
		}
		sb.WriteString(" LEFT JOIN " + c.Dialect.QuoteIdent(j.Table) + " ON " + on)
	}

	if q.Filter != nil {
		where, err := c.compilePredicate(b, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE " + where)
	}

	if len(groupBy) > 0 {
		keys := make([]string, len(groupBy))
		for i, g := range groupBy {
			keys[i] = b.column(g)
		}
		sb.WriteString(" GROUP BY " + strings.Join(keys, ", "))
	}

	if len(orderBy) > 0 {
		keys := make([]string, len(orderBy))
		for i, o := range orderBy {
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			keys[i] = b.column(o.Column) + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}

	if q.Limit != nil {
		sb.WriteString(" LIMIT " + b.bind(q.Limit.Count))
		sb.WriteString(" OFFSET " + b.bind(q.Limit.Offset))
	}

	return &Statement{SQL: sb.String(), Params: b.params, Columns: columns}, nil
}

// compileProjections renders the select list and the matching result
// column layout. Wildcards expand to every registry column of the table.
func (c *SQLCompiler) compileProjections(b *builder, projections []queryir.Projection) ([]string, []ResultColumn, error) {
	var list []string
	var columns []ResultColumn

	for _, p := range projections {
		switch proj := p.(type) {
		case queryir.Column:
			expr := b.column(proj.Ref)
			typ := proj.Ref.Type
			if proj.Count {
				expr = "COUNT(" + expr + ")"
				typ = schema.TypeInteger
			}
			if proj.Alias != "" {
				expr += " AS " + c.Dialect.QuoteIdent(proj.Alias)
			}
			list = append(list, expr)
			columns = append(columns, ResultColumn{Section: proj.Section(), Key: proj.Key(), Type: typ, Count: proj.Count})

		case queryir.Wildcard:
			if c.Schema == nil {
				return nil, nil, fmt.Errorf("wildcard on %q requires a schema registry", proj.Table)
			}
			table, err := c.Schema.Table(proj.Table)
			if err != nil {
				return nil, nil, err
			}
			for _, col := range table.Columns {
				list = append(list, b.column(col))
				columns = append(columns, ResultColumn{Section: table.Name, Key: col.Name, Type: col.Type})
			}

		default:
			return nil, nil, fmt.Errorf("unsupported projection type: %T", p)
		}
	}

	return list, columns, nil
}

// compilePredicate renders a predicate fragment.
// CRITICAL: Values NEVER interpolated - always bound.
func (c *SQLCompiler) compilePredicate(b *builder, p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil
	case queryir.Compare:
		return c.compileCompare(b, pred)
	case queryir.IsNull:
		if pred.Negate {
			return b.column(pred.Column) + " IS NOT NULL", nil
		}
		return b.column(pred.Column) + " IS NULL", nil
	case queryir.ColumnEquals:
		return b.column(pred.Left) + " = " + b.column(pred.Right), nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		for _, sub := range pred.Predicates {
			sql, err := c.compilePredicate(b, sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return strings.Join(parts, " AND "), nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileCompare(b *builder, cmp queryir.Compare) (string, error) {
	col := b.column(cmp.Column)

	if cmp.Op.IsMatch() {
		s, ok := cmp.Value.(ir.String)
		if !ok {
			return "", fmt.Errorf("%s %s requires a string value, got %T", cmp.Column.QualifiedName(), cmp.Op, cmp.Value)
		}
		pattern := escapeLike(string(s))
		switch cmp.Op {
		case queryir.OpStartsWith:
			pattern += "%"
		case queryir.OpEndsWith:
			pattern = "%" + pattern
		case queryir.OpContains:
			pattern = "%" + pattern + "%"
		}
		return col + " LIKE " + b.bind(pattern) + ` ESCAPE '\'`, nil
	}

	switch cmp.Op {
	case queryir.OpEq, queryir.OpNe, queryir.OpGte, queryir.OpLte, queryir.OpGt, queryir.OpLt:
	default:
		return "", fmt.Errorf("unsupported operator %q", cmp.Op)
	}

	param, err := ValueToParam(cmp.Value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmp.Column.QualifiedName(), err)
	}
	if param == nil {
		return "", fmt.Errorf("%s %s NULL is never true; use IS NULL", cmp.Column.QualifiedName(), cmp.Op)
	}
	return col + " " + string(cmp.Op) + " " + b.bind(param), nil
}

// escapeLike escapes LIKE wildcards so the value matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ValueToParam converts a scalar ir.Value to a database/sql parameter.
// Arrays and objects cannot be bound.
func ValueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Array:
		return nil, fmt.Errorf("array value cannot be used as SQL parameter")
	case ir.Object:
		return nil, fmt.Errorf("object value cannot be used as SQL parameter")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

func prependOrder(keys []queryir.OrderKey, col schema.Column) []queryir.OrderKey {
	if len(keys) > 0 && keys[0].Column == col {
		return keys
	}
	out := make([]queryir.OrderKey, 0, len(keys)+1)
	out = append(out, queryir.OrderKey{Column: col})
	return append(out, keys...)
}

func prependGroup(keys []schema.Column, col schema.Column) []schema.Column {
	for _, k := range keys {
		if k == col {
			return keys
		}
	}
	out := make([]schema.Column, 0, len(keys)+1)
	out = append(out, col)
	return append(out, keys...)
}
