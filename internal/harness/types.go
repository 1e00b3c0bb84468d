package harness

import "github.com/roach88/odataql/internal/store"

// TraceEvent records how one case ran.
type TraceEvent struct {
	Case      string `json:"case"`
	EntitySet string `json:"entity_set"`
	RequestID string `json:"request_id,omitempty"`
	Seq       int64  `json:"seq,omitempty"`
	SQL       string `json:"sql,omitempty"`
	Params    []any  `json:"params,omitempty"`
	Error     string `json:"error,omitempty"`

	// RowCount is nil for compile-only and failed cases.
	RowCount *int `json:"rows,omitempty"`

	// Rows are the returned rows, kept out of golden snapshots.
	Rows []store.Row `json:"-"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every case expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per case, in case order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a case event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
