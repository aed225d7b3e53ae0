package harness

import (
	"encoding/json"

	"github.com/roach88/jsonquery/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the query outcome matched every expectation.
	Pass bool `json:"pass"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	RunID       string `json:"run_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Merged      bool   `json:"merged"`
	Count       int    `json:"count"`

	// Rows holds the returned rows as Objects: flat records when merged,
	// section → columns otherwise.
	Rows []ir.Object `json:"rows"`

	// Digest identifies the returned rows independent of run ID.
	Digest string `json:"digest,omitempty"`

	// ErrorCode is the code of the query error, if the query failed.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Rows:   []ir.Object{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func encodeValue(v ir.Value) string {
	data, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
