package queryspec

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/jsonquery/internal/ir"
)

// Operator names accepted in where conditions.
const (
	OpEq      = "eq"
	OpNe      = "ne"
	OpGte     = "gte"
	OpLte     = "lte"
	OpGt      = "gt"
	OpLt      = "lt"
	OpStart   = "start"
	OpEnd     = "end"
	OpContain = "contain"
)

// IsOperator reports whether op is a supported condition operator.
func IsOperator(op string) bool {
	switch op {
	case OpEq, OpNe, OpGte, OpLte, OpGt, OpLt, OpStart, OpEnd, OpContain:
		return true
	}
	return false
}

// Sort directions accepted in order fields.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// QuerySpec is the declarative query document.
//
// Only Fields is required. Every other key defaults to "no constraint".
type QuerySpec struct {
	Fields        []FieldGroup `json:"fields"`
	Where         []WhereGroup `json:"where,omitempty"`
	OrderFields   []KeyGroup   `json:"order_fields,omitempty"`
	GroupFields   []KeyGroup   `json:"group_fields,omitempty"`
	DistinctField *FieldRef    `json:"distinct_field,omitempty"`
	Join          []JoinSpec   `json:"join,omitempty"`
	Limit         *Limit       `json:"limit,omitempty"`
	Merge         bool         `json:"merge,omitempty"`
}

// FieldGroup selects fields of one table. A group without fields selects
// every column of the table.
type FieldGroup struct {
	Table  string      `json:"table"`
	Fields []FieldSpec `json:"fields,omitempty"`
}

// SelectsAll reports whether the group is a wildcard selection.
func (g FieldGroup) SelectsAll() bool {
	return len(g.Fields) == 0
}

// FieldSpec is one projected field. Count wraps the column in an aggregate
// count; Alias renames the resulting expression.
type FieldSpec struct {
	Field string `json:"field"`
	Alias string `json:"alias,omitempty"`
	Count bool   `json:"count,omitempty"`
}

// WhereGroup holds the conditions for one table.
type WhereGroup struct {
	Table      string      `json:"table"`
	Conditions []Condition `json:"conditions"`
}

// Condition is a single filter predicate. Operator defaults to "eq".
type Condition struct {
	Field    string   `json:"field"`
	Value    ir.Value `json:"value"`
	Operator string   `json:"operator,omitempty"`

	// HasValue is false when the value key was absent from the document.
	HasValue bool `json:"-"`
}

// UnmarshalJSON decodes the condition, keeping integer literals exact and
// recording whether value was present at all.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var aux struct {
		Field    string          `json:"field"`
		Value    json.RawMessage `json:"value"`
		Operator string          `json:"operator"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Field = aux.Field
	c.Operator = aux.Operator
	c.HasValue = len(aux.Value) > 0
	c.Value = nil
	if c.HasValue {
		v, err := ir.Decode(aux.Value)
		if err != nil {
			return fmt.Errorf("condition %q value: %w", aux.Field, err)
		}
		c.Value = v
	}
	return nil
}

// EffectiveOperator returns the operator, defaulting to eq.
func (c Condition) EffectiveOperator() string {
	if c.Operator == "" {
		return OpEq
	}
	return c.Operator
}

// KeyGroup lists ordering or grouping fields of one table.
type KeyGroup struct {
	Table  string     `json:"table"`
	Fields []KeyField `json:"fields"`
}

// KeyField is one ordering/grouping field. Sort is ignored for grouping.
type KeyField struct {
	Field string `json:"field"`
	Sort  string `json:"sort,omitempty"`
}

// Descending reports whether the field sorts descending.
func (f KeyField) Descending() bool {
	return f.Sort == SortDesc
}

// FieldRef addresses a single column.
type FieldRef struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

// JoinSpec describes one left outer join: the On table is joined where
// On.Field equals Joiner.Field.
type JoinSpec struct {
	On     FieldRef `json:"on"`
	Joiner FieldRef `json:"joiner"`
}

// Limit is a record window: skip Start rows, return End-Start rows.
type Limit struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

// Window returns (offset, count) for a validated limit.
func (l Limit) Window() (int64, int64) {
	var start, end int64
	if l.Start != nil {
		start = *l.Start
	}
	if l.End != nil {
		end = *l.End
	}
	return start, end - start
}
