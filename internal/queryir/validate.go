package queryir

import "fmt"

// Descriptor issue codes. E2xx issues make the descriptor unexecutable;
// W2xx issues are reported and the query still runs.
const (
	ErrNoProjection  = "E201" // select list is empty
	ErrNoSource      = "E202" // every referenced table is a join target
	ErrDuplicateJoin = "E203" // the same table is joined twice
	ErrSelfJoin      = "E204" // join condition compares a table with itself
	ErrJoinOrder     = "E205" // join condition references a table not yet in scope
	ErrBadWindow     = "E206" // negative offset or count

	WarnCountWithoutGroup = "W201" // count aggregates the whole result set
	WarnMixedAggregate    = "W202" // plain column next to an aggregate, outside the group keys
	WarnDistinctWithGroup = "W203" // distinct and grouping on the same query
)

// Issue is one descriptor validation finding.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IsError reports whether the issue blocks execution.
func (i Issue) IsError() bool {
	return len(i.Code) > 0 && i.Code[0] == 'E'
}

func (i Issue) Error() string {
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// Validate checks a descriptor and returns all issues found (it does not
// fail fast). Errors precede warnings.
func Validate(q Select) []Issue {
	var errs, warns []Issue

	if len(q.Projections) == 0 {
		errs = append(errs, Issue{Code: ErrNoProjection, Message: "at least one projection is required"})
	}

	sources := q.Sources()
	if len(sources) == 0 && len(q.Projections) > 0 {
		errs = append(errs, Issue{Code: ErrNoSource, Message: "query has no FROM table; every referenced table is a join target"})
	}

	inScope := make(map[string]bool, len(sources)+len(q.Joins))
	for _, s := range sources {
		inScope[s] = true
	}
	joined := make(map[string]bool, len(q.Joins))
	for _, j := range q.Joins {
		if joined[j.Table] {
			errs = append(errs, Issue{Code: ErrDuplicateJoin, Message: fmt.Sprintf("table %q is joined more than once", j.Table)})
			continue
		}
		joined[j.Table] = true

		if j.On.Left.Table == j.On.Right.Table {
			errs = append(errs, Issue{Code: ErrSelfJoin, Message: fmt.Sprintf("join on %q compares the table with itself", j.Table)})
		} else if !inScope[j.On.Right.Table] {
			errs = append(errs, Issue{Code: ErrJoinOrder, Message: fmt.Sprintf("join of %q references %q before it is joined", j.Table, j.On.Right.Table)})
		}
		inScope[j.Table] = true
	}

	if w := q.Limit; w != nil && (w.Offset < 0 || w.Count < 0) {
		errs = append(errs, Issue{Code: ErrBadWindow, Message: fmt.Sprintf("invalid window offset=%d count=%d", w.Offset, w.Count)})
	}

	if q.HasAggregate() {
		if len(q.GroupBy) == 0 {
			warns = append(warns, Issue{Code: WarnCountWithoutGroup, Message: "count without group_fields aggregates the whole result set"})
		}

		grouped := make(map[string]bool, len(q.GroupBy))
		for _, g := range q.GroupBy {
			grouped[g.QualifiedName()] = true
		}
		for _, p := range q.Projections {
			switch proj := p.(type) {
			case Column:
				if !proj.Count && !grouped[proj.Ref.QualifiedName()] {
					warns = append(warns, Issue{Code: WarnMixedAggregate, Message: fmt.Sprintf("%s is selected next to an aggregate but is not a group key", proj.Ref.QualifiedName())})
				}
			case Wildcard:
				warns = append(warns, Issue{Code: WarnMixedAggregate, Message: fmt.Sprintf("%s is selected next to an aggregate", proj.Key())})
			}
		}
	}

	if q.Distinct != nil && len(q.GroupBy) > 0 {
		warns = append(warns, Issue{Code: WarnDistinctWithGroup, Message: "distinct_field combined with group_fields"})
	}

	return append(errs, warns...)
}

// Errors filters the blocking issues.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.IsError() {
			out = append(out, i)
		}
	}
	return out
}
