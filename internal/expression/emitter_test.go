package expression

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenRecorder claims every token and atom and records its text.
type tokenRecorder struct {
	out []string
}

func (r *tokenRecorder) Handle(ev Event, _ *ScopeStack) (Result, error) {
	switch ev.Kind {
	case EventNode:
		if ev.Node.Kind != KindLiteral && ev.Node.Kind != KindProperty {
			return Continue, nil
		}
		r.out = append(r.out, ev.Node.String())
	case EventSymbol:
		r.out = append(r.out, ev.Node.Symbol)
	case EventGroupStart:
		r.out = append(r.out, "(")
	case EventGroupEnd:
		r.out = append(r.out, ")")
	case EventSeparator:
		r.out = append(r.out, ",")
	}
	return Handled, nil
}

func computeTokens(t *testing.T, filter string) []string {
	t.Helper()
	p := flightsParser()
	n, err := p.ParseFilter(filter)
	require.NoError(t, err)

	rec := &tokenRecorder{}
	require.NoError(t, NewEmitter(rec).Compute(n, p.Scopes()))
	return rec.out
}

func TestEmitter_DefaultTraversal(t *testing.T) {
	testCases := []struct {
		filter string
		tokens string
	}{
		{filter: "gate eq 1", tokens: "gate eq 1"},
		{filter: "gate eq 1 and code eq 'x' or gate lt 0", tokens: "gate eq 1 and code eq 'x' or gate lt 0"},
		{filter: "(gate eq 1 or gate eq 2) and code eq 'x'", tokens: "( gate eq 1 or gate eq 2 ) and code eq 'x'"},
		{filter: "not gate eq 1", tokens: "not ( gate eq 1 )"},
		{filter: "not (gate eq 1)", tokens: "not ( gate eq 1 )"},
		{filter: "-gate gt 0", tokens: "- gate gt 0"},
		{filter: "gate gt 1 eq true", tokens: "( gate gt 1 ) eq true"},
		{filter: "true ne gate in (1, 2)", tokens: "true ne ( gate in ( 1 , 2 ) )"},
		{filter: "gate add 1 gt 2", tokens: "gate add 1 gt 2"},
		{filter: "gate in (1, 2)", tokens: "gate in ( 1 , 2 )"},
		{filter: "tolower(code) eq 'x'", tokens: "tolower code ) eq 'x'"},
		{filter: "concat(code, origin) eq 'x'", tokens: "concat code , origin ) eq 'x'"},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			assert.Equal(t, tc.tokens, strings.Join(computeTokens(t, tc.filter), " "))
		})
	}
}

func TestEmitter_HandledSkipsOperands(t *testing.T) {
	p := flightsParser()
	n, err := p.ParseFilter("gate eq 1 and code eq 'x'")
	require.NoError(t, err)

	var seen []string
	claimAnd := ListenerFunc(func(ev Event, _ *ScopeStack) (Result, error) {
		seen = append(seen, ev.Kind.String()+":"+ev.Node.Symbol)
		if ev.Kind == EventNode && ev.Node.Symbol == "and" {
			return Handled, nil
		}
		return Continue, nil
	})

	require.NoError(t, NewEmitter(claimAnd).Compute(n, p.Scopes()))
	assert.Equal(t, []string{"node:and"}, seen)
}

func TestEmitter_ListenerOrder(t *testing.T) {
	var calls []string
	listener := func(name string, res Result) Listener {
		return ListenerFunc(func(ev Event, _ *ScopeStack) (Result, error) {
			calls = append(calls, name)
			return res, nil
		})
	}

	e := NewEmitter(listener("first", Continue), listener("second", Handled))
	e.Listen(listener("third", Handled))

	p := flightsParser()
	n, err := p.ParseFilter("gate")
	require.NoError(t, err)

	require.NoError(t, e.Compute(n, p.Scopes()))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Len(t, e.Listeners(), 3)
}

func TestEmitter_UnclaimedConstructs(t *testing.T) {
	testCases := []struct {
		name   string
		filter string
	}{
		{name: "unclaimed token", filter: "gate eq 1"},
		{name: "lambda never falls back", filter: "passengers/any(p: p/age gt 1)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := flightsParser()
			n, err := p.ParseFilter(tc.filter)
			require.NoError(t, err)

			atomsOnly := ListenerFunc(func(ev Event, _ *ScopeStack) (Result, error) {
				if ev.Kind == EventNode && (ev.Node.Kind == KindLiteral || ev.Node.Kind == KindProperty) {
					return Handled, nil
				}
				return Continue, nil
			})

			err = NewEmitter(atomsOnly).Compute(n, p.Scopes())
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeNotImplemented), "got %v", err)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestEmitter_ListenerErrorAborts(t *testing.T) {
	p := flightsParser()
	n, err := p.ParseFilter("gate eq 1 and code eq 'x'")
	require.NoError(t, err)

	boom := errors.New("boom")
	var visited int
	failing := ListenerFunc(func(ev Event, _ *ScopeStack) (Result, error) {
		visited++
		if ev.Kind == EventNode && ev.Node.Symbol == "gate" {
			return Continue, boom
		}
		return Continue, nil
	})

	err = NewEmitter(failing).Compute(n, p.Scopes())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, visited, "and, eq, gate")
}

func TestEmitter_Substitute(t *testing.T) {
	a := &tokenRecorder{out: []string{"a"}}
	b := &tokenRecorder{out: []string{"b"}}
	c := &tokenRecorder{out: []string{"c"}}
	e := NewEmitter(a, b)

	s := e.Substitute(b, c)

	assert.Equal(t, []Listener{a, b}, e.Listeners(), "original chain is unchanged")
	assert.Equal(t, []Listener{a, c}, s.Listeners())
}

func TestEmitter_EventCarriesEmitter(t *testing.T) {
	p := flightsParser()
	n, err := p.ParseFilter("gate")
	require.NoError(t, err)

	var got *Emitter
	e := NewEmitter(ListenerFunc(func(ev Event, _ *ScopeStack) (Result, error) {
		got = ev.Emitter
		return Handled, nil
	}))

	require.NoError(t, e.Compute(n, p.Scopes()))
	assert.Same(t, e, got)
}

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := flightsParser()
	n, err := p.ParseFilter("gate eq 1")
	require.NoError(t, err)

	rec := &tokenRecorder{}
	e := NewEmitter(LogListener{Logger: logger}, rec)
	require.NoError(t, e.Compute(n, p.Scopes()))

	assert.Equal(t, []string{"gate", "eq", "1"}, rec.out, "logging never claims an event")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4, "node eq, node gate, symbol eq, node 1")
	assert.Contains(t, lines[0], `"category":"comparison"`)
	assert.Contains(t, lines[0], `"scope":"flights"`)
}
