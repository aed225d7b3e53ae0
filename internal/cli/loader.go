package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/jsonquery/internal/queryspec"
	"github.com/roach88/jsonquery/internal/schema"
	"github.com/roach88/jsonquery/internal/store"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // Query document unreadable
	ErrCodeSchemaFailed = "E003" // Schema registry could not be loaded
	ErrCodeDBFailed     = "E004" // Database open/ping failed
	ErrCodeExecFailed   = "E005" // Query execution failed
	ErrCodeWriteFailed  = "E006" // File write error
	ErrCodeNoDatabase   = "E007" // Command needs --db

	// Query document errors
	ErrCodeMalformedQuery  = "E101" // Invalid JSON or structure
	ErrCodeUnknownOperator = "E102" // Operator outside the supported set
	ErrCodeUnknownColumn   = "E103" // Table or field not in the schema
	ErrCodeInvalidLimit    = "E104" // Bad limit window
)

// MapQueryErrorCode maps a query error code to a CLI error code.
func MapQueryErrorCode(code queryspec.ErrorCode) string {
	switch code {
	case queryspec.ErrCodeMalformedQuery:
		return ErrCodeMalformedQuery
	case queryspec.ErrCodeUnknownOperator:
		return ErrCodeUnknownOperator
	case queryspec.ErrCodeUnknownColumn:
		return ErrCodeUnknownColumn
	case queryspec.ErrCodeInvalidLimit:
		return ErrCodeInvalidLimit
	default:
		return ErrCodeGeneric
	}
}

// queryErrorDetails describes a query error for JSON output.
type queryErrorDetails struct {
	Code  queryspec.ErrorCode `json:"code"`
	Path  string              `json:"path,omitempty"`
	Table string              `json:"table,omitempty"`
	Field string              `json:"field,omitempty"`
}

// outputQueryError reports err, which is a query document error when it
// carries a queryspec code and an execution failure otherwise.
func outputQueryError(formatter *OutputFormatter, err error) error {
	var qe *queryspec.Error
	if errors.As(err, &qe) {
		_ = formatter.Error(MapQueryErrorCode(qe.Code), qe.Error(), queryErrorDetails{
			Code:  qe.Code,
			Path:  qe.Path,
			Table: qe.Table,
			Field: qe.Field,
		})
		return WrapExitError(ExitFailure, "invalid query document", err)
	}
	_ = formatter.Error(ErrCodeExecFailed, err.Error(), nil)
	return WrapExitError(ExitCommandError, "query execution failed", err)
}

// outputCommandError reports an environment failure (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, message, err)
}

// outputStoreError reports a failure from openStore.
func outputStoreError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, errNoDatabase) {
		return outputCommandError(formatter, ErrCodeNoDatabase, "database required", err)
	}
	return outputCommandError(formatter, ErrCodeDBFailed, "failed to open database", err)
}

// readQuery reads a query document from path, or from stdin when path is "-".
func readQuery(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("query file not found: %s", path)
	}
	return os.ReadFile(path)
}

var errNoDatabase = errors.New("no database configured (use --db or JSONQUERY_DB)")

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.Database == "" {
		return nil, errNoDatabase
	}
	return store.Open(opts.Driver, opts.Database, store.WithLogger(opts.Logger()))
}

// loadRegistry loads the schema registry from --schema, or introspects st
// when no schema is configured. st may be nil only when a schema is set.
func loadRegistry(ctx context.Context, opts *RootOptions, st *store.Store) (*schema.Registry, error) {
	if opts.Schema != "" {
		return schema.LoadCUE(opts.Schema)
	}
	if st == nil {
		return nil, errors.New("no schema configured (use --schema, or --db to introspect)")
	}
	return st.Schema(ctx)
}
