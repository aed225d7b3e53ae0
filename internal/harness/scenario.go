package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jsonquery/internal/queryspec"
)

// Scenario defines one query conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an inline CUE schema registry document.
	Schema string `yaml:"schema,omitempty"`

	// SchemaFile is a CUE schema file or directory, relative to the
	// scenario file. When neither Schema nor SchemaFile is set the schema is
	// introspected from the database after setup.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// Setup holds SQL statements run in order before the query.
	Setup []string `yaml:"setup,omitempty"`

	// Query is the query document.
	Query map[string]any `yaml:"query"`

	// Expect is what the query must produce.
	Expect Expectation `yaml:"expect"`

	// RunID fixes the run ID reported in the result. Defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Expectation describes the expected outcome of a scenario's query.
type Expectation struct {
	// Count is the expected number of rows.
	Count *int `yaml:"count,omitempty"`

	// Rows are the expected rows, in order. Merged queries list flat
	// records, others list rows keyed by section.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Error is the expected error code (e.g. "UNKNOWN_COLUMN").
	Error string `yaml:"error,omitempty"`
}

var knownErrorCodes = map[string]bool{
	string(queryspec.ErrCodeMalformedQuery):  true,
	string(queryspec.ErrCodeUnknownOperator): true,
	string(queryspec.ErrCodeUnknownColumn):   true,
	string(queryspec.ErrCodeInvalidLimit):    true,
}

// QueryJSON encodes the query document as JSON.
func (s *Scenario) QueryJSON() ([]byte, error) {
	data, err := json.Marshal(s.Query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return data, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SchemaFile != "" && !filepath.IsAbs(scenario.SchemaFile) {
		scenario.SchemaFile = filepath.Join(filepath.Dir(path), scenario.SchemaFile)
	}
	if scenario.SchemaFile != "" {
		if _, err := os.Stat(scenario.SchemaFile); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.SchemaFile)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema != "" && s.SchemaFile != "" {
		return fmt.Errorf("schema and schema_file are mutually exclusive")
	}
	for i, stmt := range s.Setup {
		if stmt == "" {
			return fmt.Errorf("setup[%d]: statement is empty", i)
		}
	}
	if len(s.Query) == 0 {
		return fmt.Errorf("query is required")
	}

	e := s.Expect
	if e.Count == nil && e.Rows == nil && e.Error == "" {
		return fmt.Errorf("expect: one of count, rows or error is required")
	}
	if e.Error != "" {
		if !knownErrorCodes[e.Error] {
			return fmt.Errorf("expect.error: unknown error code %q", e.Error)
		}
		if e.Count != nil || e.Rows != nil {
			return fmt.Errorf("expect.error cannot be combined with count or rows")
		}
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("expect.count must be non-negative")
	}
	if e.Count != nil && e.Rows != nil && *e.Count != len(e.Rows) {
		return fmt.Errorf("expect.count (%d) disagrees with %d expected rows", *e.Count, len(e.Rows))
	}
	return nil
}
