package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	DatabaseFlags
	EntitySet string // optional - filter to one entity set
	RequestID string // optional - a single request
}

// LogEntry is one logged request.
type LogEntry struct {
	Seq       int64  `json:"seq"`
	RequestID string `json:"request_id"`
	EntitySet string `json:"entity_set"`
	SQL       string `json:"sql"`
	Params    []any  `json:"params"`
	Rows      int64  `json:"rows"`
}

// LogStats holds summary statistics for the log.
type LogStats struct {
	Requests int            `json:"requests"`
	Rows     int64          `json:"rows"`
	BySet    map[string]int `json:"by_set"`
}

// LogResult holds the complete log output.
type LogResult struct {
	Entries []LogEntry `json:"entries"`
	Stats   LogStats   `json:"stats"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the query log",
		Long: `Show the requests executed against a database, in seq order.

Each entry holds the request ID, the compiled SQL, its parameters and the
number of rows returned.

Examples:
  odataql log --db ./flights.db
  odataql log --db ./flights.db --set flights
  odataql log --db ./flights.db --request 0192f0c4-7c1e-7b53-9a62-3f1d5a0b2c11 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	opts.DatabaseFlags.bind(cmd)
	cmd.Flags().StringVar(&opts.EntitySet, "set", "", "filter to one entity set")
	cmd.Flags().StringVar(&opts.RequestID, "request", "", "show a single request")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := readLog(ctx, st, opts.RequestID)
	if err != nil {
		return err
	}

	result := LogResult{
		Entries: []LogEntry{},
		Stats:   LogStats{BySet: map[string]int{}},
	}
	for _, e := range entries {
		if opts.EntitySet != "" && e.EntitySet != opts.EntitySet {
			continue
		}
		params := e.Params
		if params == nil {
			params = []any{}
		}
		result.Entries = append(result.Entries, LogEntry{
			Seq:       e.Seq,
			RequestID: e.RequestID,
			EntitySet: e.EntitySet,
			SQL:       e.SQL,
			Params:    params,
			Rows:      e.RowCount,
		})
		result.Stats.Requests++
		result.Stats.Rows += e.RowCount
		result.Stats.BySet[e.EntitySet]++
	}

	if opts.Format == "json" {
		return outputLogJSON(cmd, result)
	}
	return outputLogText(cmd, result, opts.Verbose)
}

// readLog returns the whole log, or the single entry for requestID.
func readLog(ctx context.Context, st *store.Store, requestID string) ([]store.QueryLogEntry, error) {
	if requestID == "" {
		entries, err := st.ReadQueryLog(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read query log", err)
		}
		return entries, nil
	}

	entry, err := st.ReadQueryLogEntry(ctx, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read query log", err)
	}
	return []store.QueryLogEntry{entry}, nil
}

// outputLogJSON outputs the log as JSON.
func outputLogJSON(cmd *cobra.Command, result LogResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

// outputLogText outputs the log as a timeline.
func outputLogText(cmd *cobra.Command, result LogResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No requests found in query log.")
		return nil
	}

	fmt.Fprintf(w, "Query log: %d request(s), %d row(s)\n", result.Stats.Requests, result.Stats.Rows)
	fmt.Fprintln(w)

	for _, e := range result.Entries {
		fmt.Fprintf(w, "[%d] %s %s (%d row(s))\n", e.Seq, e.RequestID, e.EntitySet, e.Rows)
		fmt.Fprintf(w, "    %s\n", e.SQL)
		if verbose && len(e.Params) > 0 {
			parts := make([]string, len(e.Params))
			for i, p := range e.Params {
				parts[i] = fmt.Sprintf("$%d=%v", i+1, p)
			}
			fmt.Fprintf(w, "    %s\n", strings.Join(parts, " "))
		}
	}
	return nil
}
