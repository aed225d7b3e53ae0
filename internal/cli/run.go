package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonquery/internal/ir"
	"github.com/roach88/jsonquery/internal/store"
	"github.com/roach88/jsonquery/internal/translator"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs translator.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query.json|->",
		Short: "Run a query document against the database",
		Long: `Translate a JSON query document, execute it and print the rows.

Rows are printed sectioned by table unless the document sets "merge": true.
The schema registry comes from --schema, or is introspected from --db.

Example:
  jsonquery run --db ./shop.db query.json
  echo '{"fields":[{"table":"users"}]}' | jsonquery run --db ./shop.db -
  jsonquery run --driver pgx --db postgres://localhost/shop --schema shop.cue q.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := commandContext(cmd)

	data, err := readQuery(path, cmd.InOrStdin())
	if err != nil {
		return outputCommandError(formatter, ErrCodeReadFailed, "failed to read query document", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return outputStoreError(formatter, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()

	tr, err := newTranslator(ctx, opts.RootOptions, st, opts.RunIDs)
	if err != nil {
		return outputCommandError(formatter, ErrCodeSchemaFailed, "failed to load schema", err)
	}

	formatter.VerboseLog("Running query from %s against %s (%s)", path, opts.Database, st.Driver())
	res, err := tr.RunJSON(ctx, data)
	if err != nil {
		return outputQueryError(formatter, err)
	}

	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   res,
			RunID:  res.RunID,
		})
	}

	formatter.Table(displayRecords(res))
	fmt.Fprintf(formatter.Writer, "%d row(s)\n", res.Len())
	for _, w := range res.Warnings {
		fmt.Fprintf(formatter.Writer, "warning %s\n", w.Error())
	}
	return nil
}

// newTranslator wires the schema registry and executor for st.
func newTranslator(ctx context.Context, opts *RootOptions, st *store.Store, ids translator.IDGenerator) (*translator.Translator, error) {
	reg, err := loadRegistry(ctx, opts, st)
	if err != nil {
		return nil, err
	}
	opts.Logger().Debug("schema loaded", "tables", reg.Len(), "source", schemaSource(opts))

	var exec translator.Executor
	if st != nil {
		exec = store.NewExecutor(st, reg)
	}
	return translator.New(reg, exec,
		translator.WithLogger(opts.Logger()),
		translator.WithIDGenerator(ids),
	), nil
}

func schemaSource(opts *RootOptions) string {
	if opts.Schema != "" {
		return opts.Schema
	}
	return "introspection"
}

// displayRecords flattens a result for table output. Sectioned rows use
// "section.column" headers; a nil section renders as NULL cells.
func displayRecords(res *translator.Result) []ir.Object {
	if res.Merged {
		return res.Records
	}
	out := make([]ir.Object, 0, len(res.Rows))
	for _, row := range res.Rows {
		flat := ir.Object{}
		for name, section := range row {
			for col, v := range section {
				flat[name+"."+col] = v
			}
		}
		out = append(out, flat)
	}
	return out
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
