package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/schema"
	"github.com/roach88/jsonquery/internal/store"
	"github.com/roach88/jsonquery/internal/testutil"
	"github.com/roach88/jsonquery/internal/translator"
)

// Harness is the scenario execution environment: one isolated database and
// a deterministic run ID.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunID
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute setup statements
// 3. Load the schema registry (inline, file, or introspected)
// 4. Run the query through the translator
// 5. Compare the outcome with the expect clause
//
// Expectation mismatches are reported in the Result. The returned error is
// reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	reg, err := h.loadSchema(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	query, err := scenario.QueryJSON()
	if err != nil {
		return nil, err
	}

	tr := translator.New(reg, store.NewExecutor(st, reg),
		translator.WithLogger(h.logger),
		translator.WithIDGenerator(h.runIDs),
	)

	result := NewResult()
	res, err := tr.RunJSON(ctx, query)
	if err != nil {
		var qe *queryspec.Error
		if !errors.As(err, &qe) {
			return nil, fmt.Errorf("failed to run query: %w", err)
		}
		result.ErrorCode = string(qe.Code)
		checkError(result, scenario.Expect, qe)
		return result, nil
	}

	result.RunID = res.RunID
	result.Fingerprint = res.Fingerprint
	result.Merged = res.Merged
	result.Count = res.Len()
	if res.Merged {
		result.Rows = append(result.Rows, res.Records...)
	} else {
		for _, row := range res.Rows {
			result.Rows = append(result.Rows, row.AsValue())
		}
	}

	rows := make(ir.Array, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = row
	}
	if result.Digest, err = ir.Fingerprint(ir.DomainResultSet, rows); err != nil {
		return nil, err
	}

	if err := checkRows(result, scenario.Expect); err != nil {
		return nil, err
	}
	return result, nil
}

// executeSetup runs the setup statements in order.
func (h *Harness) executeSetup(ctx context.Context, setup []string) error {
	for i, stmt := range setup {
		if err := h.store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Debug("setup statement executed", "index", i)
	}
	return nil
}

func (h *Harness) loadSchema(ctx context.Context, s *Scenario) (*schema.Registry, error) {
	switch {
	case s.Schema != "":
		return schema.ParseCUE(s.Schema)
	case s.SchemaFile != "":
		return schema.LoadCUE(s.SchemaFile)
	default:
		return h.store.Schema(ctx)
	}
}

func checkError(result *Result, expect Expectation, qe *queryspec.Error) {
	switch {
	case expect.Error == "":
		result.AddError(fmt.Sprintf("unexpected error: %v", qe))
	case expect.Error != string(qe.Code):
		result.AddError(fmt.Sprintf("error: expected %s, got %s (%s)", expect.Error, qe.Code, qe.Message))
	}
}

func checkRows(result *Result, expect Expectation) error {
	if expect.Error != "" {
		result.AddError(fmt.Sprintf("error: expected %s, query succeeded with %d row(s)", expect.Error, result.Count))
		return nil
	}

	if expect.Count != nil && *expect.Count != result.Count {
		result.AddError(fmt.Sprintf("count: expected %d, got %d", *expect.Count, result.Count))
	}

	if expect.Rows == nil {
		return nil
	}
	if len(expect.Rows) != len(result.Rows) {
		result.AddError(fmt.Sprintf("rows: expected %d, got %d", len(expect.Rows), len(result.Rows)))
		return nil
	}
	for i, raw := range expect.Rows {
		want, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("expect.rows[%d]: %w", i, err)
		}
		if !ir.Equal(want, result.Rows[i]) {
			result.AddError(fmt.Sprintf("rows[%d]: expected %s, got %s", i, encodeValue(want), encodeValue(result.Rows[i])))
		}
	}
	return nil
}
