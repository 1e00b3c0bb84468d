package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/odataql/internal/expression"
	"github.com/roach88/odataql/internal/model"
	"github.com/roach88/odataql/internal/queryir"
	"github.com/roach88/odataql/internal/querysql"
	"github.com/roach88/odataql/internal/store"
)

// Engine compiles requests against a model and executes them on a store.
//
// Each executed request is stamped with a request ID and a seq number from
// the logical clock, and is recorded in the store's query log.
//
// Thread-safety model:
//   - Compile(): safe from any goroutine
//   - Execute(): safe from any goroutine; the SQLite store serializes
//     writes through its single connection
type Engine struct {
	store    *store.Store
	model    *model.Model
	compiler *querysql.SQLCompiler
	clock    *Clock
	ids      RequestIDGenerator
	logger   *slog.Logger
	quota    *RowQuota

	listeners []expression.Listener
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger for request and expression events.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the logical clock. Used to resume numbering after the
// last logged request.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMaxRows caps the page size of every request.
//
// Default: no limit.
// Use WithMaxRows(100) to give requests without $top a 100-row page.
func WithMaxRows(maxRows int64) EngineOption {
	return func(e *Engine) {
		e.quota = NewRowQuota(maxRows)
	}
}

// WithListener registers an expression listener ahead of the SQL
// translator, e.g. to translate a custom function.
func WithListener(l expression.Listener) EngineOption {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// New creates an Engine over store s and model m.
//
// s may be nil for an engine that only compiles.
func New(s *store.Store, m *model.Model, ids RequestIDGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		model:  m,
		clock:  NewClock(),
		ids:    ids,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	compilerOpts := []querysql.Option{querysql.WithLogger(e.logger)}
	for _, l := range e.listeners {
		compilerOpts = append(compilerOpts, querysql.WithListener(l))
	}
	e.compiler = querysql.NewSQLCompiler(compilerOpts...)
	return e
}

// Result is the outcome of one executed request.
type Result struct {
	RequestID string
	Seq       int64
	Statement querysql.Statement
	Rows      []store.Row
}

// Compile validates req and compiles it to SQL without executing it.
func (e *Engine) Compile(req queryir.Request) (querysql.Statement, error) {
	return e.compile("", req)
}

func (e *Engine) compile(requestID string, req queryir.Request) (querysql.Statement, error) {
	if v := queryir.Validate(req); !v.Valid {
		return querysql.Statement{}, invalidRequest(requestID, v)
	}
	if err := e.quota.Apply(&req); err != nil {
		return querysql.Statement{}, classify(requestID, err)
	}

	stmt, err := e.compiler.Compile(e.model, req)
	if err != nil {
		re := classify(requestID, err)
		level := slog.LevelInfo
		if !re.Client() {
			level = slog.LevelError
		}
		e.logger.Log(context.Background(), level, "request rejected",
			"request_id", requestID,
			"entity_set", req.EntitySet,
			"code", re.Code,
			"error", err,
		)
		return querysql.Statement{}, re
	}
	return stmt, nil
}

// ParseAndExecute parses a raw query string such as
// "$filter=gate gt 3&$top=10" for entitySet and executes it.
func (e *Engine) ParseAndExecute(ctx context.Context, entitySet, rawQuery string) (Result, error) {
	req, err := queryir.ParseQuery(entitySet, rawQuery)
	if err != nil {
		return Result{}, invalidRequest("", err)
	}
	return e.Execute(ctx, req)
}

// Execute compiles req, runs it on the store and logs it.
func (e *Engine) Execute(ctx context.Context, req queryir.Request) (Result, error) {
	if e.store == nil {
		return Result{}, fmt.Errorf("engine has no store")
	}

	requestID := e.ids.Generate()
	stmt, err := e.compile(requestID, req)
	if err != nil {
		return Result{}, err
	}

	seq := e.clock.Next()
	e.logger.Debug("executing request",
		"request_id", requestID,
		"seq", seq,
		"entity_set", req.EntitySet,
		"sql", stmt.SQL,
	)

	rows, err := e.store.Select(ctx, stmt.SQL, stmt.Params, stmt.Columns)
	if err != nil {
		e.logger.Error("request execution failed",
			"request_id", requestID,
			"seq", seq,
			"sql", stmt.SQL,
			"error", err,
		)
		return Result{}, classify(requestID, err)
	}

	entry := store.QueryLogEntry{
		RequestID: requestID,
		Seq:       seq,
		EntitySet: req.EntitySet,
		SQL:       stmt.SQL,
		Params:    stmt.Params,
		RowCount:  int64(len(rows)),
	}
	if err := e.store.WriteQueryLog(ctx, entry); err != nil {
		return Result{}, classify(requestID, err)
	}

	e.logger.Info("request executed",
		"request_id", requestID,
		"seq", seq,
		"entity_set", req.EntitySet,
		"rows", len(rows),
	)

	return Result{RequestID: requestID, Seq: seq, Statement: stmt, Rows: rows}, nil
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Model returns the model requests are compiled against.
func (e *Engine) Model() *model.Model {
	return e.model
}

// MaxRows returns the page size limit, 0 when unlimited.
func (e *Engine) MaxRows() int64 {
	return e.quota.MaxRows()
}
