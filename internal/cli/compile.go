package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/querysql"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/store"
	"github.com/roach88/jsonquery/internal/translator"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	Fingerprint string                    `json:"fingerprint"`
	Dialect     string                    `json:"dialect"`
	SQL         string                    `json:"sql"`
	Params      []any                     `json:"params"`
	Aliases     *translator.AliasRegistry `json:"aliases"`
	Warnings    []queryir.Issue           `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.json|->",
		Short: "Print the SQL a query document translates to",
		Long: `Translate a query document and print the parameterized SQL without
running it.

With --db the dialect follows the database and the schema may be
introspected. Without --db a --schema is required and the dialect follows
--driver.

Example:
  jsonquery compile --schema shop.cue query.json
  jsonquery compile --schema shop.cue --driver pgx query.json --format json
  jsonquery compile --db ./shop.db query.json -o query.sql`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write SQL to file instead of stdout")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
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

	var st *store.Store
	dialect, err := querysql.DialectFor(opts.Driver)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDBFailed, "invalid driver", err)
	}
	if opts.Database != "" {
		st, err = openStore(opts.RootOptions)
		if err != nil {
			return outputStoreError(formatter, err)
		}
		defer st.Close()
		dialect = st.Dialect()
	}

	reg, err := loadRegistry(ctx, opts.RootOptions, st)
	if err != nil {
		return outputCommandError(formatter, ErrCodeSchemaFailed, "failed to load schema", err)
	}

	spec, err := queryspec.Parse(data)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	plan, err := translator.New(reg, nil, translator.WithLogger(opts.Logger())).Translate(spec)
	if err != nil {
		return outputQueryError(formatter, err)
	}

	stmt, err := querysql.NewSQLCompiler(dialect, reg).Compile(plan.Query)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, "failed to compile query", err)
	}
	formatter.VerboseLog("Compiled %s for %s (%d params)", path, dialect, len(stmt.Params))

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(stmt.SQL+"\n"), 0644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote SQL to %s", opts.Output)
	}

	result := CompileResult{
		Fingerprint: plan.Fingerprint,
		Dialect:     dialect.String(),
		SQL:         stmt.SQL,
		Params:      stmt.Params,
		Aliases:     plan.Aliases,
		Warnings:    plan.Warnings,
	}
	if result.Params == nil {
		result.Params = []any{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	printCompileText(formatter.Writer, result)
	return nil
}

func printCompileText(w io.Writer, r CompileResult) {
	fmt.Fprintln(w, r.SQL)
	if len(r.Params) > 0 {
		params, err := json.Marshal(r.Params)
		if err != nil {
			params = []byte(fmt.Sprint(r.Params))
		}
		fmt.Fprintf(w, "-- params: %s\n", params)
	}
	if r.Aliases.Len() > 0 {
		names := make([]string, 0, r.Aliases.Len())
		for _, e := range r.Aliases.Entries() {
			names = append(names, e.Key+" -> "+e.Name)
		}
		fmt.Fprintf(w, "-- aliases: %s\n", strings.Join(names, ", "))
	}
	for _, iss := range r.Warnings {
		fmt.Fprintf(w, "-- warning %s\n", iss.Error())
	}
}
