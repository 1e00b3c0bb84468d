package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Row is one result row keyed by property name.
type Row map[string]any

// Select executes a compiled query and returns its rows. columns names
// the result columns in SELECT order. Byte slices returned by the driver
// are converted to strings.
//
// Returns an empty slice (not nil) if the query matches nothing.
func (s *Store) Select(ctx context.Context, query string, params []any, columns []string) ([]Row, error) {
	rows, err := s.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	got, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	if len(got) != len(columns) {
		return nil, fmt.Errorf("select: query returned %d columns, expected %d", len(got), len(columns))
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// ReadQueryLog returns every logged request.
// Results are ordered deterministically: ORDER BY seq ASC, request_id ASC.
//
// Returns an empty slice (not nil) if nothing has been logged.
func (s *Store) ReadQueryLog(ctx context.Context) ([]QueryLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, seq, entity_set, sql_text, params, param_types, row_count
		FROM query_log
		ORDER BY seq ASC, request_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []QueryLogEntry{}
	for rows.Next() {
		e, err := scanQueryLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return entries, nil
}

// ReadQueryLogEntry returns a single logged request by ID.
// Returns sql.ErrNoRows if the request was never logged.
func (s *Store) ReadQueryLogEntry(ctx context.Context, requestID string) (QueryLogEntry, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind(`
		SELECT request_id, seq, entity_set, sql_text, params, param_types, row_count
		FROM query_log
		WHERE request_id = ?
	`), requestID)
	return scanQueryLogEntry(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQueryLogEntry(sc scanner) (QueryLogEntry, error) {
	var e QueryLogEntry
	var params, types string
	if err := sc.Scan(&e.RequestID, &e.Seq, &e.EntitySet, &e.SQL, &params, &types, &e.RowCount); err != nil {
		if err == sql.ErrNoRows {
			return QueryLogEntry{}, err
		}
		return QueryLogEntry{}, fmt.Errorf("scan query log: %w", err)
	}
	p, err := unmarshalParams(params)
	if err != nil {
		return QueryLogEntry{}, err
	}
	e.Params = p
	if e.ParamTypes, err = unmarshalParamTypes(types); err != nil {
		return QueryLogEntry{}, err
	}
	return e, nil
}
