package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataql/internal/queryir"
)

func TestReplay_Empty(t *testing.T) {
	e, _ := newFlightEngine(t, NewFixedGenerator())

	report, err := e.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Replayed)
	assert.Empty(t, report.Mismatches)
}

func TestReplay_MatchesLoggedCounts(t *testing.T) {
	e, _ := newFlightEngine(t, NewFixedGenerator("req-1", "req-2"))
	ctx := context.Background()

	_, err := e.Execute(ctx, queryir.Request{EntitySet: "flights", Filter: "gate gt 1 and code eq 'lhr'"})
	require.NoError(t, err)
	_, err = e.Execute(ctx, queryir.Request{EntitySet: "flights", Top: queryir.Int64(1), Skip: queryir.Int64(1)})
	require.NoError(t, err)

	report, err := e.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Replayed)
	assert.Empty(t, report.Mismatches)
}

func TestReplay_DetectsDrift(t *testing.T) {
	e, s := newFlightEngine(t, NewFixedGenerator("req-1"))
	ctx := context.Background()

	r, err := e.Execute(ctx, queryir.Request{EntitySet: "flights", Filter: "code eq 'lhr'"})
	require.NoError(t, err)
	require.Len(t, r.Rows, 2)

	require.NoError(t, s.Insert(ctx, e.Model().Set("flights"), map[string]any{"id": 4, "code": "lhr"}))

	report, err := e.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, ReplayMismatch{RequestID: "req-1", Seq: 1, Logged: 2, Replayed: 3}, report.Mismatches[0])
}

func TestReplay_ResumesClock(t *testing.T) {
	m, s := newFlightEngine(t, NewFixedGenerator("req-1", "req-2"))
	ctx := context.Background()
	_, err := m.Execute(ctx, queryir.Request{EntitySet: "flights"})
	require.NoError(t, err)
	_, err = m.Execute(ctx, queryir.Request{EntitySet: "flights"})
	require.NoError(t, err)

	fresh := New(s, m.Model(), NewFixedGenerator("req-3"), WithLogger(discard))
	_, err = fresh.Replay(ctx)
	require.NoError(t, err)

	r, err := fresh.Execute(ctx, queryir.Request{EntitySet: "flights"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Seq)
}

func TestReplay_DateTimeOffsetParams(t *testing.T) {
	e, s := newFlightEngine(t, NewFixedGenerator("req-1"))
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, e.Model().Set("airports"), map[string]any{
		"id": 1, "code": "lhr", "sam_datetime": "2020-01-01T08:00:00Z",
	}))

	r, err := e.Execute(ctx, queryir.Request{EntitySet: "airports", Filter: "sam_datetime ge 2020-01-01T08:00:00Z"})
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)

	entries, err := s.ReadQueryLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"datetimeoffset"}, entries[0].ParamTypes)

	report, err := e.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)
	assert.Empty(t, report.Mismatches)
}
