package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/jsonquery/internal/ir"
)

// RootOptions holds global flags for all commands. Values are resolved
// through viper after flag parsing: flag, then JSONQUERY_* environment
// variable, then config file, then default.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // DSN or SQLite path
	Driver     string // "sqlite3" | "pgx"
	Schema     string // CUE schema file or directory; empty means introspect

	v      *viper.Viper
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the jsonquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: newViper()}

	cmd := &cobra.Command{
		Use:   "jsonquery",
		Short: "jsonquery - JSON query documents over SQL databases",
		Long: `Translate JSON query documents into parameterized SQL, run them against
SQLite or PostgreSQL, and return rows sectioned by table or merged flat.

Every global flag can also be set through an environment variable named
JSONQUERY_<FLAG> (dashes become underscores) or a config file (--config).
Flags take precedence over environment variables, which take precedence
over the config file.`,
		Version:       fmt.Sprintf("%s (query format %s)", ir.Version, ir.FormatVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", "", "database DSN (SQLite path or PostgreSQL URL)")
	flags.StringVar(&opts.Driver, "driver", "sqlite3", "database driver (sqlite3|pgx)")
	flags.StringVar(&opts.Schema, "schema", "", "CUE schema file or directory (default: introspect the database)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Logger returns the logger configured for this invocation.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
