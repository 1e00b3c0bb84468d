package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/odataql/internal/engine"
	"github.com/roach88/odataql/internal/model"
	"github.com/roach88/odataql/internal/queryir"
	"github.com/roach88/odataql/internal/querysql"
	"github.com/roach88/odataql/internal/schema"
	"github.com/roach88/odataql/internal/store"
	"github.com/roach88/odataql/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fresh database and deterministic request IDs.
type Harness struct {
	store  *store.Store
	model  *model.Model
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes engine logs to logger instead of discarding them.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load the CUE schema
// 2. Create a fresh in-memory database and bootstrap its tables
// 3. Insert fixtures
// 4. Compile or execute every case and check its expectation
// 5. Evaluate assertions against the query log and tables
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	loaded, errs := schema.Load(scenario.Schema, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}
	h.model = loaded.Model

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	ctx := context.Background()
	if err := st.Bootstrap(ctx, h.model); err != nil {
		return nil, fmt.Errorf("failed to bootstrap tables: %w", err)
	}
	if err := h.insertFixtures(ctx, scenario.Fixtures); err != nil {
		return nil, fmt.Errorf("failed to insert fixtures: %w", err)
	}

	h.engine = engine.New(st, h.model,
		testutil.NewSequentialRequestIDs(scenario.RequestID),
		engine.WithLogger(h.logger),
		engine.WithMaxRows(scenario.MaxRows),
	)

	result := NewResult()
	for _, c := range scenario.Cases {
		h.runCase(ctx, c, result)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// insertFixtures fills sets in name order so failures are reproducible.
func (h *Harness) insertFixtures(ctx context.Context, fixtures map[string][]map[string]any) error {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		set := h.model.Set(name)
		if set == nil {
			return fmt.Errorf("%w: %q", querysql.ErrUnknownEntitySet, name)
		}
		for i, row := range fixtures[name] {
			if err := h.store.Insert(ctx, set, row); err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
		}
		h.logger.Info("fixtures inserted", "entity_set", name, "rows", len(fixtures[name]))
	}
	return nil
}

// runCase compiles or executes one case and records its trace event and
// any expectation failures.
func (h *Harness) runCase(ctx context.Context, c Case, result *Result) {
	ev := TraceEvent{Case: c.Name, EntitySet: c.EntitySet}

	req, err := c.request()
	if err != nil {
		ev.Error = engine.ErrCodeInvalidRequest
		result.AddTrace(ev)
		checkCase(c, ev, querysql.Statement{}, err, result)
		return
	}

	var stmt querysql.Statement
	if c.CompileOnly {
		stmt, err = h.engine.Compile(req)
	} else {
		var r engine.Result
		r, err = h.engine.Execute(ctx, req)
		if err == nil {
			stmt = r.Statement
			ev.RequestID = r.RequestID
			ev.Seq = r.Seq
			ev.Rows = r.Rows
			n := len(r.Rows)
			ev.RowCount = &n
		}
	}

	if err != nil {
		ev.Error = engine.ErrorCode(err)
		if ev.Error == "" {
			ev.Error = engine.ErrCodeExecution
		}
	} else {
		ev.SQL = stmt.SQL
		ev.Params = stmt.Params
	}
	result.AddTrace(ev)
	checkCase(c, ev, stmt, err, result)
}

// request builds the queryir request of a case.
func (c Case) request() (queryir.Request, error) {
	if c.Query != "" {
		return queryir.ParseQuery(c.EntitySet, c.Query)
	}
	return queryir.Request{
		EntitySet: c.EntitySet,
		Filter:    c.Filter,
		OrderBy:   c.OrderBy,
		Select:    c.Select,
		Top:       c.Top,
		Skip:      c.Skip,
	}, nil
}
