package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/jsonquery/internal/ir"
)

// Snapshot is the golden-file form of a scenario result.
type Snapshot struct {
	ScenarioName string
	RunID        string
	Merged       bool
	Count        int
	Rows         []ir.Object
	ErrorCode    string
}

// NewSnapshot captures the stable parts of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Merged:       result.Merged,
		Count:        result.Count,
		Rows:         result.Rows,
		ErrorCode:    result.ErrorCode,
	}
}

// Value converts the snapshot into an ir.Object for canonical encoding.
func (s Snapshot) Value() ir.Object {
	rows := make(ir.Array, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = row
	}
	obj := ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"merged":        ir.Bool(s.Merged),
		"count":         ir.Int(s.Count),
		"rows":          rows,
	}
	if s.RunID != "" {
		obj["run_id"] = ir.String(s.RunID)
	}
	if s.ErrorCode != "" {
		obj["error_code"] = ir.String(s.ErrorCode)
	}
	return obj
}

// Canonical encodes the snapshot as canonical JSON.
func (s Snapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.Value())
}

// RunWithGolden executes a scenario and compares its output against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
