package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/engine"
	"github.com/roach88/odataql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	RequestFlags
	DatabaseFlags
	MaxRows   int64
	Bootstrap bool

	// IDs allows overriding the request ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.RequestIDGenerator
}

// QueryResult is an executed request.
type QueryResult struct {
	RequestID string      `json:"request_id"`
	Seq       int64       `json:"seq"`
	SQL       string      `json:"sql"`
	Params    []any       `json:"params"`
	Columns   []string    `json:"columns"`
	Rows      []store.Row `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <schema-dir>",
		Short: "Compile and execute a request",
		Long: `Compile a request against a CUE data model, execute it on a database
and print the rows. Every executed request is recorded in the query log.

With --bootstrap, missing entity set tables are created first.

Lambda filters (any/all) compile to "= ANY (subquery)" and "= ALL
(subquery)", which sqlite does not support. Run them with the postgres or
mysql driver, or inspect the SQL with "odataql compile".

Examples:
  odataql query ./schema --db ./flights.db --set flights --filter "gate gt 3"
  odataql query ./schema --db ./flights.db --set flights --orderby "code desc" --top 10
  odataql query ./schema --driver postgres --db "postgres://localhost/flights?sslmode=disable" --set flights`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	opts.RequestFlags.bind(cmd)
	opts.DatabaseFlags.bind(cmd)
	cmd.Flags().Int64Var(&opts.MaxRows, "max-rows", 0, "page size limit applied as the default $top (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Bootstrap, "bootstrap", false, "create missing entity set tables")

	return cmd
}

func runQuery(opts *QueryOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	req, err := opts.request()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidFlags, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid request flags", err)
	}

	m, err := loadModel(formatter, schemaDir)
	if err != nil {
		return err
	}

	st, err := opts.open()
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer st.Close()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Bootstrap {
		if err := st.Bootstrap(ctx, m); err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to bootstrap tables", err)
		}
		formatter.VerboseLog("Bootstrapped %d set(s)", len(m.Sets()))
	}

	// Resume the logical clock after any requests already logged
	log, err := st.ReadQueryLog(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read query log", err)
	}
	var last int64
	if n := len(log); n > 0 {
		last = log[n-1].Seq
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	eng := engine.New(st, m, ids,
		engine.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())),
		engine.WithMaxRows(opts.MaxRows),
		engine.WithClock(engine.NewClockAt(last)),
	)

	res, err := eng.Execute(ctx, req)
	if err != nil {
		return formatter.RequestError(err)
	}

	result := QueryResult{
		RequestID: res.RequestID,
		Seq:       res.Seq,
		SQL:       res.Statement.SQL,
		Params:    res.Statement.Params,
		Columns:   res.Statement.Columns,
		Rows:      res.Rows,
	}
	if result.Params == nil {
		result.Params = []any{}
	}
	return outputQuerySuccess(formatter, result)
}

// outputQuerySuccess prints the rows as a table in text mode.
func outputQuerySuccess(formatter *OutputFormatter, result QueryResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.VerboseLog("%s", result.SQL)

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			if v := row[col]; v != nil {
				cells[i] = fmt.Sprint(v)
			} else {
				cells[i] = "null"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(formatter.Writer, "(%d row(s), request %s)\n", len(result.Rows), result.RequestID)
	return nil
}
