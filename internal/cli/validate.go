package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonquery/internal/queryir"
	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/store"
	"github.com/roach88/jsonquery/internal/translator"
)

// ValidateResult is the payload of a successful validate command.
type ValidateResult struct {
	Valid       bool            `json:"valid"`
	Fingerprint string          `json:"fingerprint"`
	SchemaCheck bool            `json:"schema_checked"`
	Warnings    []queryir.Issue `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query.json|->",
		Short: "Check a query document without running it",
		Long: `Check a query document's structure, operators and limit window.

When a schema is available (--schema, or --db to introspect) every table
and field reference is also resolved against it.

Example:
  jsonquery validate query.json
  jsonquery validate --schema shop.cue query.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := readQuery(path, cmd.InOrStdin())
	if err != nil {
		return outputCommandError(formatter, ErrCodeReadFailed, "failed to read query document", err)
	}

	spec, err := queryspec.Parse(data)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	if err := spec.Validate(); err != nil {
		return outputQueryError(formatter, err)
	}

	fingerprint, err := spec.Fingerprint()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, "failed to fingerprint query", err)
	}
	result := ValidateResult{Valid: true, Fingerprint: fingerprint}

	if opts.Schema != "" || opts.Database != "" {
		var st *store.Store
		if opts.Database != "" {
			st, err = openStore(opts)
			if err != nil {
				return outputStoreError(formatter, err)
			}
			defer st.Close()
		}
		reg, err := loadRegistry(commandContext(cmd), opts, st)
		if err != nil {
			return outputCommandError(formatter, ErrCodeSchemaFailed, "failed to load schema", err)
		}
		plan, err := translator.New(reg, nil, translator.WithLogger(opts.Logger())).Translate(spec)
		if err != nil {
			return outputQueryError(formatter, err)
		}
		result.SchemaCheck = true
		result.Warnings = plan.Warnings
	}
	formatter.VerboseLog("Validated %s (schema checked: %v)", path, result.SchemaCheck)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.SchemaCheck {
		fmt.Fprintf(formatter.Writer, "✓ %s is valid against the schema\n", path)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ %s is well-formed (no schema to check references)\n", path)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", w.Error())
	}
	return nil
}
