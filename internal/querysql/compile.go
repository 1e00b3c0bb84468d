package querysql

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/roach88/odataql/internal/expression"
	"github.com/roach88/odataql/internal/model"
	"github.com/roach88/odataql/internal/queryir"
)

// ErrUnknownEntitySet is returned when a request names a set the model does
// not declare.
var ErrUnknownEntitySet = errors.New("unknown entity set")

// Statement is a compiled, parameterized query.
type Statement struct {
	SQL    string
	Params []any

	// Where is the translated $filter, empty when the request has none.
	// WhereParams are its parameters, a prefix of Params.
	Where       string
	WhereParams []any

	// Columns are the selected property names in result order.
	Columns []string
}

// SQLCompiler compiles requests to parameterized SQL.
//
// All values are bound as "?" parameters, never interpolated. Every SELECT
// ends with the entity key in its ORDER BY so that paging is deterministic.
type SQLCompiler struct {
	logger    *slog.Logger
	listeners []expression.Listener
}

// Option configures an SQLCompiler.
type Option func(*SQLCompiler)

// WithLogger traces every expression event at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SQLCompiler) {
		c.logger = logger
	}
}

// WithListener registers a listener ahead of the SQL translator. Listeners
// that return Handled take over translation of the events they claim.
func WithListener(l expression.Listener) Option {
	return func(c *SQLCompiler) {
		c.listeners = append(c.listeners, l)
	}
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler(opts ...Option) *SQLCompiler {
	c := &SQLCompiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// emitter builds the listener chain ending with tr.
func (c *SQLCompiler) emitter(tr *Translator) *expression.Emitter {
	e := expression.NewEmitter()
	if c.logger != nil {
		e.Listen(expression.LogListener{Logger: c.logger})
	}
	for _, l := range c.listeners {
		e.Listen(l)
	}
	e.Listen(tr)
	return e
}

// CompileFilter translates a $filter expression on set into a WHERE
// fragment.
func (c *SQLCompiler) CompileFilter(set *model.EntitySet, filter string) (Fragment, error) {
	parser := expression.NewParser(set)
	n, err := parser.ParseFilter(filter)
	if err != nil {
		return Fragment{}, err
	}
	return c.translate(parser.Scopes(), set, n)
}

func (c *SQLCompiler) translate(scopes *expression.ScopeStack, set *model.EntitySet, n *expression.Node) (Fragment, error) {
	tr := NewTranslator(set)
	if err := c.emitter(tr).Compute(n, scopes); err != nil {
		return Fragment{}, err
	}
	frag := tr.Fragment()
	if frag.Placeholders() != len(frag.params) {
		return Fragment{}, fmt.Errorf("translated fragment has %d placeholders for %d parameters", frag.Placeholders(), len(frag.params))
	}
	return frag, nil
}

// Compile converts a request to a SELECT statement.
func (c *SQLCompiler) Compile(m *model.Model, req queryir.Request) (Statement, error) {
	set := m.Set(req.EntitySet)
	if set == nil {
		return Statement{}, fmt.Errorf("%w: %q", ErrUnknownEntitySet, req.EntitySet)
	}

	columns, names, err := c.selectColumns(set, req.Select)
	if err != nil {
		return Statement{}, err
	}

	var stmt Statement
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, set.Table)

	if req.Filter != "" {
		where, err := c.CompileFilter(set, req.Filter)
		if err != nil {
			return Statement{}, fmt.Errorf("compile $filter: %w", err)
		}
		b.WriteString(" WHERE " + where.Where())
		stmt.Where = where.Where()
		stmt.WhereParams = where.Parameters()
		stmt.Params = append(stmt.Params, stmt.WhereParams...)
	}

	order, err := c.orderBy(set, req.OrderBy)
	if err != nil {
		return Statement{}, fmt.Errorf("compile $orderby: %w", err)
	}
	b.WriteString(" ORDER BY " + order.Where())
	stmt.Params = append(stmt.Params, order.Parameters()...)

	if req.Top != nil || req.Skip != nil {
		limit := int64(math.MaxInt64)
		if req.Top != nil {
			limit = *req.Top
		}
		b.WriteString(" LIMIT ?")
		stmt.Params = append(stmt.Params, limit)
		if req.Skip != nil {
			b.WriteString(" OFFSET ?")
			stmt.Params = append(stmt.Params, *req.Skip)
		}
	}

	stmt.SQL = b.String()
	stmt.Columns = names
	return stmt, nil
}

// selectColumns builds the SELECT list. Columns stored under a different
// name are aliased back to the property name.
func (c *SQLCompiler) selectColumns(set *model.EntitySet, selected []string) (string, []string, error) {
	props := set.Type.Properties()
	if len(selected) > 0 {
		props = make([]*model.Property, 0, len(selected))
		for _, name := range selected {
			p := set.Type.Property(name)
			if p == nil {
				return "", nil, expression.NewUnknownPropertyError(-1, name, set.Type.Name)
			}
			props = append(props, p)
		}
	}

	parts := make([]string, 0, len(props))
	names := make([]string, 0, len(props))
	for _, p := range props {
		col := set.Field(p)
		if col == p.Name {
			parts = append(parts, col)
		} else {
			parts = append(parts, fmt.Sprintf("%s AS %s", col, p.Name))
		}
		names = append(names, p.Name)
	}
	return strings.Join(parts, ", "), names, nil
}

// orderBy translates $orderby and appends the key columns not already
// ordered on as a tiebreaker.
func (c *SQLCompiler) orderBy(set *model.EntitySet, clause string) (Fragment, error) {
	var order Fragment
	ordered := make(map[*model.Property]bool)

	if strings.TrimSpace(clause) != "" {
		parser := expression.NewParser(set)
		items, err := parser.ParseOrderBy(clause)
		if err != nil {
			return Fragment{}, err
		}
		for _, item := range items {
			frag, err := c.translate(parser.Scopes(), set, item.Expr)
			if err != nil {
				return Fragment{}, err
			}
			if !order.Empty() {
				order.AttachWhere(",")
			}
			order.Merge(frag)
			if item.Descending {
				order.AddWhere("DESC")
			} else {
				order.AddWhere("ASC")
			}
			if item.Expr.Kind == expression.KindProperty && item.Expr.Navigation == nil {
				ordered[item.Expr.Property] = true
			}
		}
	}

	keys, err := set.Type.KeyProperties()
	if err != nil {
		return Fragment{}, expression.NewModelError("%v", err)
	}
	if len(keys) == 0 {
		return Fragment{}, expression.NewModelError("entity type %s has no key", set.Type.Name)
	}
	for _, k := range keys {
		if ordered[k] {
			continue
		}
		if !order.Empty() {
			order.AttachWhere(",")
		}
		order.AddWhere(set.Field(k), "ASC")
	}
	return order, nil
}
