package engine

import (
	"context"
	"fmt"
)

// ReplayMismatch describes a logged request whose re-execution returned a
// different number of rows.
type ReplayMismatch struct {
	RequestID string
	Seq       int64
	Logged    int64
	Replayed  int64
}

// ReplayReport summarizes a replay of the query log.
type ReplayReport struct {
	Replayed   int
	Mismatches []ReplayMismatch
}

// Replay re-executes every logged statement in seq order and compares the
// row counts with the logged ones. Replayed statements are not logged
// again, and the clock resumes after the last logged seq.
//
// Parameters are bound with the types recorded next to them in the log,
// so timestamps replay as time.Time rather than their RFC 3339 text.
//
// Replay must not run concurrently with Execute.
func (e *Engine) Replay(ctx context.Context) (ReplayReport, error) {
	if e.store == nil {
		return ReplayReport{}, fmt.Errorf("engine has no store")
	}

	entries, err := e.store.ReadQueryLog(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	report := ReplayReport{Mismatches: []ReplayMismatch{}}
	var last int64
	for _, entry := range entries {
		params, err := entry.BindParams()
		if err != nil {
			return report, fmt.Errorf("replay: %w", err)
		}

		rows, err := e.store.Query(ctx, entry.SQL, params...)
		if err != nil {
			return report, fmt.Errorf("replay request %s: %w", entry.RequestID, err)
		}
		var n int64
		for rows.Next() {
			n++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return report, fmt.Errorf("replay request %s: %w", entry.RequestID, err)
		}

		report.Replayed++
		if n != entry.RowCount {
			e.logger.Warn("replay mismatch",
				"request_id", entry.RequestID,
				"seq", entry.Seq,
				"logged", entry.RowCount,
				"replayed", n,
			)
			report.Mismatches = append(report.Mismatches, ReplayMismatch{
				RequestID: entry.RequestID,
				Seq:       entry.Seq,
				Logged:    entry.RowCount,
				Replayed:  n,
			})
		}
		last = entry.Seq
	}

	if last > e.clock.Current() {
		e.clock = NewClockAt(last)
	}
	return report, nil
}
