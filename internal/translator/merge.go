package translator

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/queryspec"
)

// MergeRows flattens every row of a plan's result.
func (t *Translator) MergeRows(rows []ir.Row, plan *Plan) []ir.Object {
	tables := plan.Query.Tables()
	out := make([]ir.Object, 0, len(rows))
	for _, row := range rows {
		out = append(out, MergeRow(row, plan.Aliases, tables, t.logger))
	}
	return out
}

// MergeRow flattens a sectioned row into one name → value mapping.
//
// Table sections are copied in the order of tables (sections not listed
// follow in name order); on a key collision the later table wins. The
// _extra section is applied last: each alias entry whose generated key is
// present with a non-null value is written under its output name.
//
// A section that cannot be merged (a nil left-join miss, or an _extra
// section missing while aliases exist) is logged and skipped.
func MergeRow(row ir.Row, aliases *AliasRegistry, tables []string, logger *slog.Logger) ir.Object {
	if logger == nil {
		logger = slog.Default()
	}
	flat := make(ir.Object)

	for _, name := range sectionOrder(row, tables) {
		section := row[name]
		if section == nil {
			logSectionError(logger, queryspec.MergeSection(name, "section is null (no joined record)"), slog.LevelDebug)
			continue
		}
		for k, v := range section {
			flat[k] = v
		}
	}

	if aliases.Len() > 0 {
		extra, ok := row[queryir.ExtraSection]
		if !ok || extra == nil {
			logSectionError(logger, queryspec.MergeSection(queryir.ExtraSection, "section missing; aliases not applied"), slog.LevelWarn)
			return flat
		}
		for _, e := range aliases.Entries() {
			v, present := extra[e.Key]
			if !present {
				logSectionError(logger, queryspec.MergeSection(queryir.ExtraSection, "missing key "+e.Key), slog.LevelWarn)
				continue
			}
			if ir.IsNull(v) {
				continue
			}
			flat[e.Name] = v
		}
	}

	return flat
}

// sectionOrder lists the table sections of row: those named in tables
// first, in that order, then any others sorted by name. _extra is excluded.
func sectionOrder(row ir.Row, tables []string) []string {
	order := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, name := range tables {
		if _, ok := row[name]; ok && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	var rest []string
	for name := range row {
		if name != queryir.ExtraSection && !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

func logSectionError(logger *slog.Logger, err *queryspec.Error, level slog.Level) {
	logger.Log(context.Background(), level, "merge section skipped", "code", err.Code, "section", err.Table, "error", err.Message)
}
