package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/odataql/internal/querysql"
	"github.com/roach88/odataql/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Error != "" {
				fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", i+1, event.Case, event.EntitySet, event.Error)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", i+1, event.Case, event.EntitySet, event.SQL)
			}
		}
	}

	return buf.String()
}

// checkCase compares the outcome of a case with its expectation and
// records every mismatch on result.
func checkCase(c Case, ev TraceEvent, stmt querysql.Statement, err error, result *Result) {
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("case %q: %s", c.Name, fmt.Sprintf(format, args...)))
	}

	e := c.Expect
	if e != nil && e.Error != "" {
		if err == nil {
			fail("expected error %s, got success", e.Error)
		} else if ev.Error != e.Error {
			fail("expected error %s, got %s: %v", e.Error, ev.Error, err)
		}
		return
	}
	if err != nil {
		fail("unexpected error: %v", err)
		return
	}
	if e == nil {
		return
	}

	if e.SQL != "" && stmt.SQL != e.SQL {
		fail("sql mismatch\n  expected: %s\n  actual:   %s", e.SQL, stmt.SQL)
	}
	if e.Where != "" && stmt.Where != e.Where {
		fail("where mismatch\n  expected: %s\n  actual:   %s", e.Where, stmt.Where)
	}
	if e.Params != nil && !listsEqual(e.Params, stmt.Params) {
		fail("params mismatch: expected %v, got %v", e.Params, stmt.Params)
	}
	if e.Count != nil && (ev.RowCount == nil || *ev.RowCount != *e.Count) {
		fail("expected %d rows, got %d", *e.Count, len(ev.Rows))
	}
	if e.Rows != nil {
		if len(e.Rows) != len(ev.Rows) {
			fail("expected %d rows, got %d: %v", len(e.Rows), len(ev.Rows), ev.Rows)
			return
		}
		for i, want := range e.Rows {
			if key, ok := matchRow(ev.Rows[i], want); !ok {
				fail("row %d: field %q = %v, want %v", i, key, ev.Rows[i][key], want[key])
			}
		}
	}
}

// matchRow reports whether actual contains every expected field (subset
// match). On mismatch it returns the first offending key in name order.
func matchRow(actual store.Row, expected map[string]any) (string, bool) {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, ok := actual[k]
		if !ok || !valuesEqual(expected[k], v) {
			return k, false
		}
	}
	return "", true
}

func listsEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !valuesEqual(expected[i], actual[i]) {
			return false
		}
	}
	return true
}

// valuesEqual compares an expected YAML value with a value produced by the
// compiler or the database. Both sides are reduced to canonical text, so
// 4.5 matches decimal 4.5 and 3 matches int64(3).
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	return canonical(expected) == canonical(actual)
}

func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return decimal.NewFromFloat(x).String()
	case decimal.Decimal:
		return x.String()
	case uuid.UUID:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// assertLogContains checks that a logged request on the assertion's set
// has SQL containing the expected fragment.
func assertLogContains(log []store.QueryLogEntry, trace []TraceEvent, a Assertion) error {
	for _, e := range log {
		if a.EntitySet != "" && e.EntitySet != a.EntitySet {
			continue
		}
		if strings.Contains(e.SQL, a.SQL) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("request on %q with SQL containing %q", a.EntitySet, a.SQL),
		Actual:   "not found in query log",
		Trace:    trace,
	}
}

// assertLogOrder checks that the named cases were logged in the listed
// order. Cases don't need to be consecutive.
func assertLogOrder(log []store.QueryLogEntry, trace []TraceEvent, a Assertion) error {
	position := make(map[string]int, len(log))
	for i, e := range log {
		position[e.RequestID] = i + 1 // 1-indexed for readability
	}
	requestOf := make(map[string]string, len(trace))
	for _, ev := range trace {
		requestOf[ev.Case] = ev.RequestID
	}

	prev, prevPos := "", 0
	for _, name := range a.Cases {
		pos := position[requestOf[name]]
		if requestOf[name] == "" || pos == 0 {
			return &AssertionError{
				Type:     AssertLogOrder,
				Expected: fmt.Sprintf("all cases logged: %v", a.Cases),
				Actual:   fmt.Sprintf("case %s was not logged", name),
				Trace:    trace,
			}
		}
		if pos <= prevPos {
			return &AssertionError{
				Type:     AssertLogOrder,
				Expected: fmt.Sprintf("cases in order: %v", a.Cases),
				Actual:   fmt.Sprintf("%s (pos %d) should be before %s (pos %d)", prev, prevPos, name, pos),
				Trace:    trace,
			}
		}
		prev, prevPos = name, pos
	}
	return nil
}

// assertLogCount checks the number of logged requests on a set.
func assertLogCount(log []store.QueryLogEntry, trace []TraceEvent, a Assertion) error {
	count := 0
	for _, e := range log {
		if a.EntitySet == "" || e.EntitySet == a.EntitySet {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d requests on %q", a.Count, a.EntitySet),
			Actual:   fmt.Sprintf("%d requests", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTableRow checks that exactly one row of a table matches Where and
// that it holds the expected values. Queries use parameterized SQL.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertTableRow(ctx context.Context, st *store.Store, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", a.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", a.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Multiple matching rows would make the assertion ambiguous
	if rows.Next() {
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actual := make(store.Row, len(columns))
	for i, col := range columns {
		actual[col] = values[i]
	}
	if key, ok := matchRow(actual, a.Expect); !ok {
		v, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertTableRow,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("field %q = %v (type %T)", key, a.Expect[key], a.Expect[key]),
			Actual:   fmt.Sprintf("field %q = %v (type %T)", key, v, v),
		}
	}
	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, where[key])
	}

	return strings.Join(clauses, " AND "), args, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and the
// store. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	if len(assertions) == 0 {
		return nil
	}
	if actx == nil || actx.Store == nil {
		return []string{"assertions require database context"}
	}

	log, err := actx.Store.ReadQueryLog(actx.Ctx)
	if err != nil {
		return []string{fmt.Sprintf("read query log: %v", err)}
	}

	var errs []string
	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertLogContains:
			err = assertLogContains(log, result.Trace, a)
		case AssertLogOrder:
			err = assertLogOrder(log, result.Trace, a)
		case AssertLogCount:
			err = assertLogCount(log, result.Trace, a)
		case AssertTableRow:
			err = assertTableRow(actx.Ctx, actx.Store, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
