package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonquery/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr            string
	ShutdownTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve query documents over HTTP",
		Long: `Start an HTTP server that runs query documents against the database.

Endpoints:
  POST /v1/query   run a JSON query document
  GET  /healthz    database health check
  GET  /metrics    Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  jsonquery serve --db ./shop.db --addr :8080
  JSONQUERY_DB=postgres://localhost/shop JSONQUERY_DRIVER=pgx jsonquery serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if addr := opts.lookup("addr"); addr != "" {
		opts.Addr = addr
	}
	if opts.v != nil && opts.v.IsSet("shutdown-timeout") {
		opts.ShutdownTimeout = opts.v.GetDuration("shutdown-timeout")
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

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := newTranslator(ctx, opts.RootOptions, st, nil)
	if err != nil {
		return outputCommandError(formatter, ErrCodeSchemaFailed, "failed to load schema", err)
	}

	srv := server.New(tr,
		server.WithLogger(opts.Logger()),
		server.WithPinger(st),
	)
	formatter.VerboseLog("Serving %s (%s) on %s", opts.Database, st.Driver(), opts.Addr)

	if err := srv.ListenAndServe(ctx, opts.Addr, opts.ShutdownTimeout); err != nil && err != context.Canceled {
		return outputCommandError(formatter, ErrCodeGeneric, "server failed", err)
	}
	opts.Logger().Info("server stopped")
	return nil
}
