// Package translator turns query documents into query descriptors, runs
// them through an Executor, and optionally flattens the sectioned rows.
//
// A Translator holds only immutable references (schema registry, executor,
// logger, id generator) and is safe for concurrent use. All per-query state,
// including the alias registry, lives in the Plan returned by Translate.
package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/schema"
)

// Executor runs a query descriptor and returns sectioned rows.
type Executor interface {
	Execute(ctx context.Context, q queryir.Select) ([]ir.Row, error)
}

// Translator translates and runs query documents.
type Translator struct {
	schema *schema.Registry
	exec   Executor
	logger *slog.Logger
	ids    IDGenerator
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger. Debug records show the built clauses.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithIDGenerator sets the run ID generator (default UUIDv7Generator).
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Translator) {
		if g != nil {
			t.ids = g
		}
	}
}

// New creates a Translator. exec may be nil for translate-only use.
func New(reg *schema.Registry, exec Executor, opts ...Option) *Translator {
	t := &Translator{
		schema: reg,
		exec:   exec,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Plan is the outcome of translating one document.
type Plan struct {
	Query       queryir.Select
	Aliases     *AliasRegistry
	Merge       bool
	Fingerprint string
	Warnings    []queryir.Issue
}

// Translate builds the descriptor: projection first (required), then
// ordering, grouping, distinct, filter, joins and limit.
func (t *Translator) Translate(spec *queryspec.QuerySpec) (*Plan, error) {
	if spec == nil {
		return nil, queryspec.Malformed("", "query document is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	projections, aliases, err := t.BuildFields(spec.Fields)
	if err != nil {
		return nil, err
	}
	q := queryir.Select{Projections: projections}

	if q.OrderBy, err = t.BuildOrder(spec.OrderFields); err != nil {
		return nil, err
	}
	if q.GroupBy, err = t.BuildGroup(spec.GroupFields); err != nil {
		return nil, err
	}
	if q.Distinct, err = t.BuildDistinct(spec.DistinctField); err != nil {
		return nil, err
	}
	if q.Filter, err = t.BuildFilter(spec.Where); err != nil {
		return nil, err
	}
	if q.Joins, err = t.BuildJoins(spec.Join); err != nil {
		return nil, err
	}
	if q.Limit, err = t.BuildLimit(spec.Limit); err != nil {
		return nil, err
	}

	fingerprint, err := spec.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint query: %w", err)
	}

	plan := &Plan{Query: q, Aliases: aliases, Merge: spec.Merge, Fingerprint: fingerprint}
	for _, issue := range queryir.Validate(q) {
		if issue.IsError() {
			return nil, queryspec.Malformed("", "%s", issue.Message)
		}
		t.logger.Warn("query warning", "code", issue.Code, "message", issue.Message, "fingerprint", fingerprint)
		plan.Warnings = append(plan.Warnings, issue)
	}

	t.logger.Debug("translated query",
		"fingerprint", fingerprint,
		"sources", q.Sources(),
		"joins", len(q.Joins),
		"order_keys", len(q.OrderBy),
		"group_keys", len(q.GroupBy),
		"filtered", q.Filter != nil,
		"limited", q.Limit != nil,
	)
	return plan, nil
}

// Result is the outcome of one run. Exactly one of Rows (sectioned) and
// Records (merged) is set.
type Result struct {
	RunID       string
	Fingerprint string
	Merged      bool
	Rows        []ir.Row
	Records     []ir.Object
	Warnings    []queryir.Issue
}

// Len returns the number of result rows.
func (r *Result) Len() int {
	if r.Merged {
		return len(r.Records)
	}
	return len(r.Rows)
}

// MarshalJSON renders the result with its rows under "rows".
func (r *Result) MarshalJSON() ([]byte, error) {
	var rows any = r.Rows
	if r.Merged {
		rows = r.Records
	}
	return json.Marshal(struct {
		RunID       string          `json:"run_id"`
		Fingerprint string          `json:"fingerprint"`
		Merged      bool            `json:"merged"`
		Count       int             `json:"count"`
		Rows        any             `json:"rows"`
		Warnings    []queryir.Issue `json:"warnings,omitempty"`
	}{r.RunID, r.Fingerprint, r.Merged, r.Len(), rows, r.Warnings})
}

// Run translates, executes and, when merge is requested, flattens.
func (t *Translator) Run(ctx context.Context, spec *queryspec.QuerySpec) (*Result, error) {
	if t.exec == nil {
		return nil, fmt.Errorf("translator has no executor")
	}

	plan, err := t.Translate(spec)
	if err != nil {
		return nil, err
	}

	runID := t.ids.Generate()
	start := time.Now()

	rows, err := t.exec.Execute(ctx, plan.Query)
	if err != nil {
		t.logger.Error("query failed", "run_id", runID, "fingerprint", plan.Fingerprint, "error", err)
		return nil, fmt.Errorf("execute query: %w", err)
	}

	result := &Result{
		RunID:       runID,
		Fingerprint: plan.Fingerprint,
		Merged:      plan.Merge,
		Warnings:    plan.Warnings,
	}
	if plan.Merge {
		result.Records = t.MergeRows(rows, plan)
	} else {
		result.Rows = rows
	}

	t.logger.Info("query executed",
		"run_id", runID,
		"fingerprint", plan.Fingerprint,
		"rows", result.Len(),
		"merged", plan.Merge,
		"duration", time.Since(start),
	)
	return result, nil
}

// RunJSON decodes a document and runs it.
func (t *Translator) RunJSON(ctx context.Context, data []byte) (*Result, error) {
	spec, err := queryspec.Parse(data)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, spec)
}

// RunFile reads a document from a file and runs it.
func (t *Translator) RunFile(ctx context.Context, path string) (*Result, error) {
	spec, err := queryspec.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, spec)
}
