package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odataql/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DatabaseFlags
}

// ReplayMismatch is a logged request whose replay returned a different
// number of rows.
type ReplayMismatch struct {
	RequestID string `json:"request_id"`
	Seq       int64  `json:"seq"`
	Logged    int64  `json:"logged"`
	Replayed  int64  `json:"replayed"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Replayed   int              `json:"replayed"`
	Mismatches []ReplayMismatch `json:"mismatches"`
	Consistent bool             `json:"consistent"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the query log and compare row counts",
		Long: `Re-execute every logged statement in seq order and compare the number
of rows it returns with the logged count.

A mismatch means the data changed since the request ran, or the statement
is not deterministic.

Exit codes:
  0 - Every request returned its logged row count
  1 - One or more mismatches
  2 - Command error (database not found, etc.)

Examples:
  odataql replay --db ./flights.db
  odataql replay --db ./flights.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	opts.DatabaseFlags.bind(cmd)

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	// Replay runs logged SQL as-is, so it needs no model
	eng := engine.New(st, nil, engine.UUIDv7Generator{},
		engine.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
	)
	report, err := eng.Replay(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		Replayed:   report.Replayed,
		Mismatches: make([]ReplayMismatch, 0, len(report.Mismatches)),
		Consistent: len(report.Mismatches) == 0,
	}
	for _, m := range report.Mismatches {
		result.Mismatches = append(result.Mismatches, ReplayMismatch(m))
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Consistent {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_MISMATCH",
			Message: fmt.Sprintf("%d request(s) returned a different row count", len(result.Mismatches)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Consistent {
		// Replay mismatch = exit code 1
		return NewExitError(ExitFailure, "replay mismatch")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	if result.Replayed == 0 {
		fmt.Fprintln(w, "No requests found in query log.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d request(s)\n", result.Replayed)
	fmt.Fprintln(w)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ [%d] %s: logged %d row(s), replayed %d\n", m.Seq, m.RequestID, m.Logged, m.Replayed)
	}

	if result.Consistent {
		fmt.Fprintln(w, "✓ All requests replayed consistently")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay mismatch")
	// Replay mismatch = exit code 1
	return NewExitError(ExitFailure, "replay mismatch")
}
