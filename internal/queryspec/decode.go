package queryspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/roach88/jsonquery/internal/ir"
)

// Parse decodes and validates a query document.
// Any decoding or structural failure is returned as a MALFORMED_QUERY
// (or INVALID_LIMIT) *Error, never as an empty spec.
func Parse(data []byte) (*QuerySpec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, Malformed("", "empty query document")
	}
	if trimmed[0] != '{' {
		return nil, Malformed("", "query document must be a JSON object")
	}

	var spec QuerySpec
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		qe := Malformed("", "invalid JSON")
		qe.Err = err
		return nil, qe
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Decode reads a query document from r.
func Decode(r io.Reader) (*QuerySpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read query document: %w", err)
	}
	return Parse(data)
}

// DecodeFile reads a query document from a file.
func DecodeFile(path string) (*QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	return Parse(data)
}

// Validate checks the structural rules of the document. It does not
// consult a schema; table and field names are resolved by the translator.
func (s *QuerySpec) Validate() error {
	if len(s.Fields) == 0 {
		return Malformed("fields", "at least one field group is required")
	}

	for i, group := range s.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if group.Table == "" {
			return Malformed(path+".table", "table is required")
		}
		for j, f := range group.Fields {
			if f.Field == "" {
				return Malformed(fmt.Sprintf("%s.fields[%d].field", path, j), "field is required")
			}
		}
	}

	for i, group := range s.Where {
		path := fmt.Sprintf("where[%d]", i)
		if group.Table == "" {
			return Malformed(path+".table", "table is required")
		}
		for j, cond := range group.Conditions {
			condPath := fmt.Sprintf("%s.conditions[%d]", path, j)
			if cond.Field == "" {
				return Malformed(condPath+".field", "field is required")
			}
			if !cond.HasValue {
				return Malformed(condPath+".value", "value is required")
			}
			if cond.Operator != "" && !IsOperator(cond.Operator) {
				return UnknownOperator(condPath+".operator", group.Table, cond.Field, cond.Operator)
			}
		}
	}

	if err := validateKeyGroups("order_fields", s.OrderFields, true); err != nil {
		return err
	}
	if err := validateKeyGroups("group_fields", s.GroupFields, false); err != nil {
		return err
	}

	if d := s.DistinctField; d != nil {
		if d.Table == "" || d.Field == "" {
			return Malformed("distinct_field", "table and field are required")
		}
	}

	for i, j := range s.Join {
		path := fmt.Sprintf("join[%d]", i)
		if j.On.Table == "" || j.On.Field == "" {
			return Malformed(path+".on", "table and field are required")
		}
		if j.Joiner.Table == "" || j.Joiner.Field == "" {
			return Malformed(path+".joiner", "table and field are required")
		}
	}

	if l := s.Limit; l != nil {
		if err := validateLimit(*l); err != nil {
			return err
		}
	}

	return nil
}

func validateKeyGroups(key string, groups []KeyGroup, sorted bool) error {
	for i, group := range groups {
		path := fmt.Sprintf("%s[%d]", key, i)
		if group.Table == "" {
			return Malformed(path+".table", "table is required")
		}
		for j, f := range group.Fields {
			fieldPath := fmt.Sprintf("%s.fields[%d]", path, j)
			if f.Field == "" {
				return Malformed(fieldPath+".field", "field is required")
			}
			if sorted && f.Sort != "" && f.Sort != SortAsc && f.Sort != SortDesc {
				return Malformed(fieldPath+".sort", "sort must be %q or %q, got %q", SortAsc, SortDesc, f.Sort)
			}
		}
	}
	return nil
}

func validateLimit(l Limit) error {
	if l.Start == nil || l.End == nil {
		return &Error{Code: ErrCodeInvalidLimit, Message: "limit requires start and end", Path: "limit"}
	}
	if *l.Start < 0 {
		return &Error{Code: ErrCodeInvalidLimit, Message: fmt.Sprintf("start must be >= 0, got %d", *l.Start), Path: "limit.start"}
	}
	if *l.End < *l.Start {
		return &Error{Code: ErrCodeInvalidLimit, Message: fmt.Sprintf("end (%d) must be >= start (%d)", *l.End, *l.Start), Path: "limit.end"}
	}
	return nil
}

// Value returns the document as an ir.Value tree.
func (s *QuerySpec) Value() (ir.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal query spec: %w", err)
	}
	return ir.Decode(data)
}

// Fingerprint returns the content hash of the document. Key order and
// whitespace in the source JSON do not affect it.
func (s *QuerySpec) Fingerprint() (string, error) {
	v, err := s.Value()
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainQuerySpec, v)
}
