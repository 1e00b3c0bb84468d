package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/odataql/internal/model"
)

// QueryLogEntry records one executed request.
type QueryLogEntry struct {
	RequestID string
	Seq       int64
	EntitySet string
	SQL       string
	Params    []any
	// ParamTypes holds the primitive type of each parameter, see BindParams.
	ParamTypes []string
	RowCount   int64
}

// Bootstrap creates one table per entity set of m. Tables shared by
// several sets are created once, from the first set that names them.
// Existing tables are left untouched.
func (s *Store) Bootstrap(ctx context.Context, m *model.Model) error {
	created := make(map[string]bool)
	for _, set := range m.Sets() {
		if created[set.Table] {
			continue
		}
		created[set.Table] = true

		ddl, err := createTable(set)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", set.Name, err)
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("bootstrap %s: %w", set.Name, err)
		}
	}
	return nil
}

func createTable(set *model.EntitySet) (string, error) {
	keys, err := set.Type.KeyProperties()
	if err != nil {
		return "", err
	}

	var cols []string
	for _, p := range set.Type.Properties() {
		col := set.Field(p) + " " + p.Type.SQLType()
		if !p.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = set.Field(k)
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", set.Table, strings.Join(cols, ", ")), nil
}

// Insert writes one row into set's table. Keys of row are property names;
// values are coerced to the property's declared type. Properties missing
// from row are inserted as NULL.
func (s *Store) Insert(ctx context.Context, set *model.EntitySet, row map[string]any) error {
	for name := range row {
		if set.Type.Property(name) == nil {
			return fmt.Errorf("insert into %s: unknown property %q", set.Name, name)
		}
	}

	props := set.Type.Properties()
	cols := make([]string, len(props))
	marks := make([]string, len(props))
	args := make([]any, len(props))
	for i, p := range props {
		v, err := Coerce(p, row[p.Name])
		if err != nil {
			return fmt.Errorf("insert into %s: %w", set.Name, err)
		}
		cols[i] = set.Field(p)
		marks[i] = "?"
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		set.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := s.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", set.Name, err)
	}
	return nil
}

// Coerce converts a loosely typed value, as decoded from YAML or JSON,
// to the Go value bound for p. The results match the literal values the
// lexer produces, so fixtures and filters compare equal:
//
//	String          NFC-normalized string
//	Boolean         bool
//	Int16/32/64     int64
//	Decimal         decimal.Decimal
//	Double          float64
//	Date            "2006-01-02" string
//	DateTimeOffset  time.Time in UTC
//	Guid            uuid.UUID
func Coerce(p *model.Property, v any) (any, error) {
	if v == nil {
		if !p.Nullable {
			return nil, fmt.Errorf("property %q is not nullable", p.Name)
		}
		return nil, nil
	}

	switch p.Type {
	case model.String:
		if s, ok := v.(string); ok {
			return norm.NFC.String(s), nil
		}
	case model.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case model.Int16, model.Int32, model.Int64:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case model.Decimal:
		switch x := v.(type) {
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(x), nil
		}
		if n, ok := toInt64(v); ok {
			return decimal.NewFromInt(n), nil
		}
	case model.Double:
		switch x := v.(type) {
		case float64:
			return x, nil
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}
			return d.InexactFloat64(), nil
		}
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	case model.Date:
		switch x := v.(type) {
		case time.Time:
			return x.Format("2006-01-02"), nil
		case string:
			t, err := time.Parse("2006-01-02", x)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}
			return t.Format("2006-01-02"), nil
		}
	case model.DateTimeOffset:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			t, err := dateparse.ParseStrict(x)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}
			return t.UTC(), nil
		}
	case model.TimeOfDay:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case model.Guid:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", p.Name, err)
			}
			return id, nil
		}
	default:
		return nil, fmt.Errorf("property %q: unsupported type %s", p.Name, p.Type)
	}
	return nil, fmt.Errorf("property %q: cannot use %T as %s", p.Name, v, p.Type)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// ErrDuplicateRequest is returned when a request ID is logged twice.
var ErrDuplicateRequest = errors.New("duplicate request id")

// WriteQueryLog appends an entry to the query log.
//
// Params are serialized to canonical JSON so the log can be compared
// byte-for-byte across runs.
func (s *Store) WriteQueryLog(ctx context.Context, e QueryLogEntry) error {
	params, err := marshalParams(e.Params)
	if err != nil {
		return fmt.Errorf("write query log: %w", err)
	}
	types, err := marshalParamTypes(e.Params)
	if err != nil {
		return fmt.Errorf("write query log: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		s.Rebind("SELECT COUNT(*) FROM query_log WHERE request_id = ?"), e.RequestID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("write query log: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("write query log: %w: %s", ErrDuplicateRequest, e.RequestID)
	}

	_, err = s.Exec(ctx, `
		INSERT INTO query_log
		(request_id, seq, entity_set, sql_text, params, param_types, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.RequestID,
		e.Seq,
		e.EntitySet,
		e.SQL,
		params,
		types,
		e.RowCount,
	)
	if err != nil {
		return fmt.Errorf("write query log: %w", err)
	}
	return nil
}
