package queryir

import (
	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/schema"
)

// ExtraSection is the result row section holding count and alias
// expressions. Its keys are Projection.Key values.
const ExtraSection = "_extra"

// Projection is one entry of the select list.
//
// This is a sealed interface - only Column and Wildcard implement it.
// Backends switch on the concrete type to render the list.
type Projection interface {
	projectionNode() // Marker method - seals interface to this package

	// Key is the generated key of the expression. For plain columns it is
	// the column name inside its table section; for count/alias
	// expressions it is the key inside ExtraSection.
	Key() string

	// Section is the result row section the value lands in.
	Section() string
}

// Column projects one column, optionally wrapped in COUNT and renamed.
//
// Composition order is fixed: COUNT applies first, then the alias, so an
// alias always names the aggregate.
//
//	Column{Ref: users.id}                       → users.id        in "users"
//	Column{Ref: users.id, Count: true}          → COUNT(users.id) in "_extra"
//	Column{Ref: users.id, Alias: "uid"}         → users.id AS uid in "_extra"
//	Column{Ref: users.id, Count: true, Alias: "n"}
//	                                            → COUNT(users.id) AS n in "_extra"
type Column struct {
	Ref   schema.Column
	Count bool
	Alias string
}

func (Column) projectionNode() {}

// Expression returns the expression text without the alias.
func (c Column) Expression() string {
	if c.Count {
		return "COUNT(" + c.Ref.QualifiedName() + ")"
	}
	return c.Ref.QualifiedName()
}

// Key implements Projection.
func (c Column) Key() string {
	if !c.IsExtra() {
		return c.Ref.Name
	}
	if c.Alias != "" {
		return c.Expression() + " AS " + c.Alias
	}
	return c.Expression()
}

// Section implements Projection.
func (c Column) Section() string {
	if c.IsExtra() {
		return ExtraSection
	}
	return c.Ref.Table
}

// IsExtra reports whether the column is a count/alias expression.
func (c Column) IsExtra() bool {
	return c.Count || c.Alias != ""
}

// Wildcard projects every column of a table, in registry order.
type Wildcard struct {
	Table string
}

func (Wildcard) projectionNode() {}

// Key implements Projection.
func (w Wildcard) Key() string { return w.Table + ".*" }

// Section implements Projection.
func (w Wildcard) Section() string { return w.Table }

// Op is a comparison operator.
type Op string

const (
	OpEq         Op = "="
	OpNe         Op = "<>"
	OpGte        Op = ">="
	OpLte        Op = "<="
	OpGt         Op = ">"
	OpLt         Op = "<"
	OpStartsWith Op = "STARTS WITH"
	OpEndsWith   Op = "ENDS WITH"
	OpContains   Op = "CONTAINS"
)

// IsMatch reports whether the operator is a string pattern match.
func (o Op) IsMatch() bool {
	return o == OpStartsWith || o == OpEndsWith || o == OpContains
}

// Predicate represents a filter or join condition.
//
// This is a sealed interface - only Compare, IsNull, ColumnEquals and And
// implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Compare is column <op> literal. Pattern operators take an ir.String
// value matched literally; backends escape wildcard characters.
type Compare struct {
	Column schema.Column
	Op     Op
	Value  ir.Value
}

func (Compare) predicateNode() {}

// IsNull is column IS NULL, or IS NOT NULL when Negate is set.
type IsNull struct {
	Column schema.Column
	Negate bool
}

func (IsNull) predicateNode() {}

// ColumnEquals is an equality between two columns. Join conditions use it.
type ColumnEquals struct {
	Left  schema.Column
	Right schema.Column
}

func (ColumnEquals) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// LeftJoin joins Table with LEFT OUTER semantics on On: rows of the
// sources without a match keep NULLs for every column of Table.
type LeftJoin struct {
	Table string
	On    ColumnEquals
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Column schema.Column
	Desc   bool
}

// Window is a record window: skip Offset rows, return at most Count.
type Window struct {
	Offset int64
	Count  int64
}

// Select is the complete query descriptor.
//
// Semantics:
//
//	SELECT [DISTINCT ON (distinct)] <projections>
//	FROM <sources> LEFT JOIN <joins>...
//	WHERE <filter>
//	GROUP BY <group> ORDER BY <order>
//	LIMIT <count> OFFSET <offset>
//
// Only Projections is required. A nil Filter, nil Distinct or nil Limit
// means no constraint; empty OrderBy means no ORDER BY clause.
type Select struct {
	Projections []Projection
	Filter      Predicate
	Joins       []LeftJoin
	Distinct    *schema.Column
	OrderBy     []OrderKey
	GroupBy     []schema.Column
	Limit       *Window
}

// Sources returns the FROM tables: every referenced table that is not the
// target of a join, in order of first reference. Projections are scanned
// first, then the join conditions, filter, distinct, grouping and ordering.
func (q Select) Sources() []string {
	joined := make(map[string]bool, len(q.Joins))
	for _, j := range q.Joins {
		joined[j.Table] = true
	}

	seen := make(map[string]bool)
	var sources []string
	add := func(table string) {
		if table == "" || joined[table] || seen[table] {
			return
		}
		seen[table] = true
		sources = append(sources, table)
	}

	for _, p := range q.Projections {
		switch proj := p.(type) {
		case Column:
			add(proj.Ref.Table)
		case Wildcard:
			add(proj.Table)
		}
	}
	for _, j := range q.Joins {
		add(j.On.Left.Table)
		add(j.On.Right.Table)
	}
	for _, table := range predicateTables(q.Filter) {
		add(table)
	}
	if q.Distinct != nil {
		add(q.Distinct.Table)
	}
	for _, g := range q.GroupBy {
		add(g.Table)
	}
	for _, o := range q.OrderBy {
		add(o.Column.Table)
	}
	return sources
}

// Tables returns every table the query touches: sources first, then joined
// tables in join order.
func (q Select) Tables() []string {
	tables := q.Sources()
	for _, j := range q.Joins {
		tables = append(tables, j.Table)
	}
	return tables
}

func predicateTables(p Predicate) []string {
	switch pred := p.(type) {
	case Compare:
		return []string{pred.Column.Table}
	case IsNull:
		return []string{pred.Column.Table}
	case ColumnEquals:
		return []string{pred.Left.Table, pred.Right.Table}
	case And:
		var out []string
		for _, sub := range pred.Predicates {
			out = append(out, predicateTables(sub)...)
		}
		return out
	default:
		return nil
	}
}

// HasAggregate reports whether any projection is a count.
func (q Select) HasAggregate() bool {
	for _, p := range q.Projections {
		if c, ok := p.(Column); ok && c.Count {
			return true
		}
	}
	return false
}
