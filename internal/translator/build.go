package translator

import (
	"fmt"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/schema"
)

var comparisonOps = map[string]queryir.Op{
	queryspec.OpEq:      queryir.OpEq,
	queryspec.OpNe:      queryir.OpNe,
	queryspec.OpGte:     queryir.OpGte,
	queryspec.OpLte:     queryir.OpLte,
	queryspec.OpGt:      queryir.OpGt,
	queryspec.OpLt:      queryir.OpLt,
	queryspec.OpStart:   queryir.OpStartsWith,
	queryspec.OpEnd:     queryir.OpEndsWith,
	queryspec.OpContain: queryir.OpContains,
}

// resolve looks a name up in the registry, wrapping misses as
// UNKNOWN_COLUMN errors located at path.
func (t *Translator) resolve(path, table, field string) (schema.Column, error) {
	col, err := t.schema.Column(table, field)
	if err != nil {
		return schema.Column{}, queryspec.UnknownColumn(path, table, field, err)
	}
	return col, nil
}

// BuildCondition builds one filter predicate. An empty operator means eq.
//
// eq and ne against null compile to IS NULL / IS NOT NULL. start, end and
// contain require a string and match it literally.
func (t *Translator) BuildCondition(path, table, field string, value ir.Value, operator string) (queryir.Predicate, error) {
	if operator == "" {
		operator = queryspec.OpEq
	}
	op, ok := comparisonOps[operator]
	if !ok {
		return nil, queryspec.UnknownOperator(path+".operator", table, field, operator)
	}

	col, err := t.resolve(path+".field", table, field)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case nil, ir.Null:
		switch op {
		case queryir.OpEq:
			return queryir.IsNull{Column: col}, nil
		case queryir.OpNe:
			return queryir.IsNull{Column: col, Negate: true}, nil
		default:
			return nil, queryspec.Malformed(path+".value", "operator %q cannot compare with null", operator)
		}
	case ir.Array, ir.Object:
		return nil, queryspec.Malformed(path+".value", "value must be a scalar, got %T", v)
	case ir.String:
	default:
		if op.IsMatch() {
			return nil, queryspec.Malformed(path+".value", "operator %q requires a string value", operator)
		}
	}

	return queryir.Compare{Column: col, Op: op, Value: value}, nil
}

// BuildFilter combines the conditions of every where group with AND.
// Returns nil when there are no conditions.
func (t *Translator) BuildFilter(groups []queryspec.WhereGroup) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for i, g := range groups {
		for j, c := range g.Conditions {
			path := fmt.Sprintf("where[%d].conditions[%d]", i, j)
			p, err := t.BuildCondition(path, g.Table, c.Field, c.Value, c.Operator)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return queryir.And{Predicates: preds}, nil
	}
}

// BuildFields builds the projection list in input order, and the alias
// registry for the _extra keys it generates.
func (t *Translator) BuildFields(groups []queryspec.FieldGroup) ([]queryir.Projection, *AliasRegistry, error) {
	if len(groups) == 0 {
		return nil, nil, queryspec.Malformed("fields", "at least one field group is required")
	}

	aliases := NewAliasRegistry()
	var projections []queryir.Projection

	for i, g := range groups {
		path := fmt.Sprintf("fields[%d]", i)

		if g.SelectsAll() {
			if _, err := t.schema.Table(g.Table); err != nil {
				return nil, nil, queryspec.UnknownColumn(path+".table", g.Table, "*", err)
			}
			projections = append(projections, queryir.Wildcard{Table: g.Table})
			continue
		}

		for j, f := range g.Fields {
			col, err := t.resolve(fmt.Sprintf("%s.fields[%d]", path, j), g.Table, f.Field)
			if err != nil {
				return nil, nil, err
			}
			proj := queryir.Column{Ref: col, Count: f.Count, Alias: f.Alias}
			switch {
			case f.Alias != "":
				aliases.Add(proj.Key(), f.Alias)
			case f.Count:
				aliases.Add(proj.Key(), f.Field)
			}
			projections = append(projections, proj)
		}
	}

	t.logger.Debug("built projections", "count", len(projections), "aliases", aliases.Len())
	return projections, aliases, nil
}

// keyColumns resolves the fields of ordering/grouping groups. Groups with
// no fields are skipped with a warning.
func (t *Translator) keyColumns(key string, groups []queryspec.KeyGroup, visit func(schema.Column, queryspec.KeyField)) error {
	for i, g := range groups {
		path := fmt.Sprintf("%s[%d]", key, i)
		if len(g.Fields) == 0 {
			t.logger.Warn("skipping entry without fields", "key", key, "index", i, "table", g.Table)
			continue
		}
		for j, f := range g.Fields {
			col, err := t.resolve(fmt.Sprintf("%s.fields[%d]", path, j), g.Table, f.Field)
			if err != nil {
				return err
			}
			visit(col, f)
		}
	}
	return nil
}

// BuildOrder builds the composite ORDER BY key list.
func (t *Translator) BuildOrder(groups []queryspec.KeyGroup) ([]queryir.OrderKey, error) {
	var keys []queryir.OrderKey
	err := t.keyColumns("order_fields", groups, func(col schema.Column, f queryspec.KeyField) {
		keys = append(keys, queryir.OrderKey{Column: col, Desc: f.Descending()})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// BuildGroup builds the composite GROUP BY key list.
func (t *Translator) BuildGroup(groups []queryspec.KeyGroup) ([]schema.Column, error) {
	var keys []schema.Column
	err := t.keyColumns("group_fields", groups, func(col schema.Column, _ queryspec.KeyField) {
		keys = append(keys, col)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// BuildJoins builds one LEFT OUTER join per entry: the on table is joined
// where on.field equals joiner.field.
func (t *Translator) BuildJoins(joins []queryspec.JoinSpec) ([]queryir.LeftJoin, error) {
	var out []queryir.LeftJoin
	for i, j := range joins {
		path := fmt.Sprintf("join[%d]", i)
		on, err := t.resolve(path+".on", j.On.Table, j.On.Field)
		if err != nil {
			return nil, err
		}
		joiner, err := t.resolve(path+".joiner", j.Joiner.Table, j.Joiner.Field)
		if err != nil {
			return nil, err
		}
		out = append(out, queryir.LeftJoin{
			Table: on.Table,
			On:    queryir.ColumnEquals{Left: on, Right: joiner},
		})
	}
	return out, nil
}

// BuildDistinct resolves the distinct column, if any.
func (t *Translator) BuildDistinct(ref *queryspec.FieldRef) (*schema.Column, error) {
	if ref == nil {
		return nil, nil
	}
	col, err := t.resolve("distinct_field", ref.Table, ref.Field)
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// BuildLimit converts a {start, end} window to offset/count.
func (t *Translator) BuildLimit(l *queryspec.Limit) (*queryir.Window, error) {
	if l == nil {
		return nil, nil
	}
	if l.Start == nil || l.End == nil || *l.Start < 0 || *l.End < *l.Start {
		return nil, &queryspec.Error{Code: queryspec.ErrCodeInvalidLimit, Message: "limit requires 0 <= start <= end", Path: "limit"}
	}
	offset, count := l.Window()
	return &queryir.Window{Offset: offset, Count: count}, nil
}
