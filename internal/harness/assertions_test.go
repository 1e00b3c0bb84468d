package harness

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataql/internal/store"
)

func sampleLog() []store.QueryLogEntry {
	return []store.QueryLogEntry{
		{RequestID: "r-1", Seq: 1, EntitySet: "flights", SQL: "SELECT id FROM flights ORDER BY id ASC"},
		{RequestID: "r-2", Seq: 2, EntitySet: "airports", SQL: "SELECT code FROM airports WHERE is_big = ? ORDER BY id ASC"},
		{RequestID: "r-3", Seq: 3, EntitySet: "flights", SQL: "SELECT id FROM flights WHERE gate > ? ORDER BY id ASC"},
	}
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Case: "all", EntitySet: "flights", RequestID: "r-1"},
		{Case: "big", EntitySet: "airports", RequestID: "r-2"},
		{Case: "gated", EntitySet: "flights", RequestID: "r-3"},
		{Case: "broken", EntitySet: "flights", Error: "PARSE_ERROR"},
	}
}

func TestAssertLogContains_Found(t *testing.T) {
	err := assertLogContains(sampleLog(), sampleTrace(), Assertion{
		Type:      AssertLogContains,
		EntitySet: "flights",
		SQL:       "gate > ?",
	})
	assert.NoError(t, err)
}

func TestAssertLogContains_AnySet(t *testing.T) {
	err := assertLogContains(sampleLog(), sampleTrace(), Assertion{Type: AssertLogContains, SQL: "is_big"})
	assert.NoError(t, err)
}

func TestAssertLogContains_WrongSet(t *testing.T) {
	err := assertLogContains(sampleLog(), sampleTrace(), Assertion{
		Type:      AssertLogContains,
		EntitySet: "flights",
		SQL:       "is_big",
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertLogContains, assertErr.Type)
	assert.Equal(t, "not found in query log", assertErr.Actual)
	assert.Len(t, assertErr.Trace, 4)
}

func TestAssertLogOrder_Correct(t *testing.T) {
	err := assertLogOrder(sampleLog(), sampleTrace(), Assertion{Type: AssertLogOrder, Cases: []string{"all", "gated"}})
	assert.NoError(t, err)
}

func TestAssertLogOrder_WrongOrder(t *testing.T) {
	err := assertLogOrder(sampleLog(), sampleTrace(), Assertion{Type: AssertLogOrder, Cases: []string{"gated", "big"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gated (pos 3) should be before big (pos 2)")
}

func TestAssertLogOrder_FailedCaseNotLogged(t *testing.T) {
	err := assertLogOrder(sampleLog(), sampleTrace(), Assertion{Type: AssertLogOrder, Cases: []string{"all", "broken"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case broken was not logged")
}

func TestAssertLogOrder_UnknownCase(t *testing.T) {
	err := assertLogOrder(sampleLog(), sampleTrace(), Assertion{Type: AssertLogOrder, Cases: []string{"missing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case missing was not logged")
}

func TestAssertLogCount(t *testing.T) {
	tests := []struct {
		name      string
		entitySet string
		count     int
		wantErr   bool
	}{
		{"exact", "flights", 2, false},
		{"all sets", "", 3, false},
		{"zero", "passengers", 0, false},
		{"too few", "airports", 2, true},
		{"too many", "flights", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertLogCount(sampleLog(), sampleTrace(), Assertion{Type: AssertLogCount, EntitySet: tt.entitySet, Count: tt.count})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatchRow_SubsetSemantics(t *testing.T) {
	row := store.Row{"id": int64(1), "code": "lhr", "gate": int64(4)}

	key, ok := matchRow(row, map[string]any{"code": "lhr"})
	assert.True(t, ok)
	assert.Empty(t, key)

	key, ok = matchRow(row, map[string]any{"id": 1, "gate": 5})
	assert.False(t, ok)
	assert.Equal(t, "gate", key)

	key, ok = matchRow(row, map[string]any{"wings": 2})
	assert.False(t, ok)
	assert.Equal(t, "wings", key)

	_, ok = matchRow(row, map[string]any{})
	assert.True(t, ok)
}

func TestValuesEqual(t *testing.T) {
	id := uuid.MustParse("01912345-6789-7abc-8def-0123456789ab")
	when := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"int vs int64", 3, int64(3), true},
		{"int vs float64", 3, float64(3), true},
		{"float vs decimal", 4.5, decimal.RequireFromString("4.5"), true},
		{"string vs scaled decimal", "4.2", decimal.RequireFromString("4.20"), true},
		{"string vs other decimal", "4.2", decimal.RequireFromString("4.25"), false},
		{"string vs bytes", "lhr", []byte("lhr"), true},
		{"bool", false, false, true},
		{"bool vs int", true, int64(1), false},
		{"uuid", id.String(), id, true},
		{"time", "2024-05-01T12:30:00Z", when, true},
		{"both nil", nil, nil, true},
		{"nil vs value", nil, int64(0), false},
		{"value vs nil", "", nil, false},
		{"different strings", "lhr", "jfk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestListsEqual(t *testing.T) {
	assert.True(t, listsEqual([]any{"lhr", 3, 1}, []any{"lhr", int64(3), int64(1)}))
	assert.False(t, listsEqual([]any{"lhr"}, []any{"lhr", int64(3)}))
	assert.False(t, listsEqual([]any{"lhr", 3}, []any{"lhr", int64(4)}))
	assert.True(t, listsEqual([]any{}, nil))
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertLogCount,
		Expected: "2 requests on \"flights\"",
		Actual:   "1 requests",
		Trace: []TraceEvent{
			{Case: "all", EntitySet: "flights", SQL: "SELECT id FROM flights ORDER BY id ASC"},
			{Case: "broken", EntitySet: "flights", Error: "PARSE_ERROR"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: log_count")
	assert.Contains(t, msg, "Expected: 2 requests on \"flights\"")
	assert.Contains(t, msg, "Actual: 1 requests")
	assert.Contains(t, msg, "[1] all flights: SELECT id FROM flights ORDER BY id ASC")
	assert.Contains(t, msg, "[2] broken flights: PARSE_ERROR")
}

func TestBuildWhereClause_Empty(t *testing.T) {
	sql, args, err := buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestBuildWhereClause_MultipleKeys_SortedDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		sql, args, err := buildWhereClause(map[string]any{"gate": 4, "code": "lhr", "id": 1})
		require.NoError(t, err)
		assert.Equal(t, "code = ? AND gate = ? AND id = ?", sql)
		assert.Equal(t, []any{"lhr", 4, 1}, args)
	}
}

func TestBuildWhereClause_NoInterpolation(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"code": "'; DROP TABLE flights; --"})
	require.NoError(t, err)
	assert.Equal(t, "code = ?", sql)
	assert.Equal(t, []any{"'; DROP TABLE flights; --"}, args)
}

func TestBuildWhereClause_InvalidColumnName(t *testing.T) {
	_, _, err := buildWhereClause(map[string]any{"code; DROP": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "code=lhr AND id=1", formatWhereClause(map[string]any{"id": 1, "code": "lhr"}))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func createFlightsTable(t *testing.T, st *store.Store) {
	t.Helper()
	_, err := st.DB().Exec(`CREATE TABLE flights (id INTEGER PRIMARY KEY, code TEXT, gate INTEGER)`)
	require.NoError(t, err)
	_, err = st.DB().Exec(`INSERT INTO flights (id, code, gate) VALUES (1, 'lhr', 4), (2, 'lhr', 0), (3, 'sfo', 2)`)
	require.NoError(t, err)
}

func TestAssertTableRow_RowFound(t *testing.T) {
	st := setupTestStore(t)
	createFlightsTable(t, st)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights",
		Where:  map[string]any{"id": 3},
		Expect: map[string]any{"code": "sfo", "gate": 2},
	})
	assert.NoError(t, err)
}

func TestAssertTableRow_RowNotFound(t *testing.T) {
	st := setupTestStore(t)
	createFlightsTable(t, st)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights",
		Where:  map[string]any{"id": 9},
		Expect: map[string]any{"gate": 2},
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, "row not found", assertErr.Actual)
}

func TestAssertTableRow_Ambiguous(t *testing.T) {
	st := setupTestStore(t)
	createFlightsTable(t, st)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights",
		Where:  map[string]any{"code": "lhr"},
		Expect: map[string]any{"gate": 4},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple rows matched")
}

func TestAssertTableRow_ValueMismatch(t *testing.T) {
	st := setupTestStore(t)
	createFlightsTable(t, st)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights",
		Where:  map[string]any{"id": 1},
		Expect: map[string]any{"gate": 5},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "gate" = 5`)
}

func TestAssertTableRow_MissingColumn(t *testing.T) {
	st := setupTestStore(t)
	createFlightsTable(t, st)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights",
		Where:  map[string]any{"id": 1},
		Expect: map[string]any{"wings": 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "wings" not present`)
}

func TestAssertTableRow_InvalidTableName(t *testing.T) {
	st := setupTestStore(t)

	err := assertTableRow(context.Background(), st, Assertion{
		Type:   AssertTableRow,
		Table:  "flights; DROP TABLE flights",
		Expect: map[string]any{"gate": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestEvaluateAssertions_NoAssertions(t *testing.T) {
	assert.Nil(t, EvaluateAssertions(NewResult(), nil, nil))
}

func TestEvaluateAssertions_RequiresStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertLogCount}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "assertions require database context")
}

func TestEvaluateAssertions_AgainstQueryLog(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	for _, e := range sampleLog() {
		require.NoError(t, st.WriteQueryLog(ctx, e))
	}

	result := NewResult()
	for _, ev := range sampleTrace() {
		result.AddTrace(ev)
	}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertLogCount, EntitySet: "flights", Count: 2},
		{Type: AssertLogOrder, Cases: []string{"all", "big", "gated"}},
		{Type: AssertLogContains, EntitySet: "airports", SQL: "is_big = ?"},
		{Type: AssertLogCount, EntitySet: "airports", Count: 5},
		{Type: "trace_contains"},
	}, &AssertionContext{Store: st, Ctx: ctx})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "log_count")
	assert.Contains(t, errs[1], `unknown assertion type "trace_contains"`)
}
