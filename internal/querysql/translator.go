package querysql

import (
	"strconv"
	"strings"

	"github.com/roach88/odataql/internal/expression"
	"github.com/roach88/odataql/internal/model"
)

// nodeRule translates a node event. Rules that return Continue leave the
// node to the default traversal.
type nodeRule func(t *Translator, ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error)

// defaultSymbols maps operator and function symbols to their SQL text.
var defaultSymbols = map[string]string{
	"eq":      "=",
	"ne":      "<>",
	"gt":      ">",
	"ge":      ">=",
	"lt":      "<",
	"le":      "<=",
	"and":     "AND",
	"or":      "OR",
	"not":     "NOT",
	"in":      "IN",
	"add":     "+",
	"sub":     "-",
	"mul":     "*",
	"div":     "/",
	"mod":     "%",
	"-":       "-",
	"tolower": "LOWER(",
	"toupper": "UPPER(",
	"length":  "LENGTH(",
	"trim":    "TRIM(",
	"round":   "ROUND(",
	"floor":   "FLOOR(",
	"ceiling": "CEILING(",
}

// defaultRules maps symbols to node rules for constructs that cannot be
// produced by the default traversal.
var defaultRules = map[string]nodeRule{
	"eq":         (*Translator).nullComparison,
	"ne":         (*Translator).nullComparison,
	"has":        (*Translator).unsupported,
	"contains":   (*Translator).like,
	"startswith": (*Translator).like,
	"endswith":   (*Translator).like,
	"concat":     (*Translator).concat,
	"any":        (*Translator).lambda,
	"all":        (*Translator).lambda,
}

// Translator is the SQL listener. It accumulates a WHERE fragment for one
// entity set; lambdas compile their bodies into translators cloned for the
// target set.
type Translator struct {
	set     *model.EntitySet
	frag    Fragment
	symbols map[string]string
	rules   map[string]nodeRule
}

// NewTranslator creates a translator for set with the default tables.
func NewTranslator(set *model.EntitySet) *Translator {
	return &Translator{
		set:     set,
		symbols: defaultSymbols,
		rules:   defaultRules,
	}
}

// EntitySet returns the set the translator is bound to.
func (t *Translator) EntitySet() *model.EntitySet {
	return t.set
}

// Fragment returns the accumulated fragment.
func (t *Translator) Fragment() Fragment {
	return t.frag
}

// RegisterSymbol maps an operator or function symbol to SQL text. Function
// text must include the opening parenthesis.
func (t *Translator) RegisterSymbol(symbol, sql string) {
	symbols := make(map[string]string, len(t.symbols)+1)
	for k, v := range t.symbols {
		symbols[k] = v
	}
	symbols[symbol] = sql
	t.symbols = symbols
}

// clone returns an empty translator for set sharing the symbol and rule
// tables.
func (t *Translator) clone(set *model.EntitySet) *Translator {
	return &Translator{set: set, symbols: t.symbols, rules: t.rules}
}

// Handle implements expression.Listener.
func (t *Translator) Handle(ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error) {
	n := ev.Node
	switch ev.Kind {
	case expression.EventNode:
		switch n.Kind {
		case expression.KindLiteral:
			t.literal(n)
			return expression.Handled, nil
		case expression.KindProperty:
			return t.property(n, scopes)
		}
		if rule, ok := t.rules[n.Symbol]; ok {
			return rule(t, ev, scopes)
		}
		if n.Kind == expression.KindFunction {
			if _, ok := t.symbols[n.Symbol]; !ok {
				return expression.Continue, expression.NewNotImplementedError(n.Pos, "function %s has no SQL translation", n.Symbol)
			}
		}
		return expression.Continue, nil

	case expression.EventSymbol:
		sql, ok := t.symbols[n.Symbol]
		if !ok {
			return expression.Continue, nil
		}
		t.frag.AddWhere(sql)

	case expression.EventGroupStart:
		t.frag.AddWhere("(")

	case expression.EventGroupEnd:
		t.frag.AddWhere(")")

	case expression.EventSeparator:
		t.frag.AttachWhere(",")
	}
	return expression.Handled, nil
}

func (t *Translator) literal(n *expression.Node) {
	if n.IsNull() {
		t.frag.AddWhere("NULL")
		return
	}
	t.frag.AddWhere("?")
	t.frag.AddParameter(n.Value)
}

func (t *Translator) property(n *expression.Node, scopes *expression.ScopeStack) (expression.Result, error) {
	if n.Navigation != nil {
		return expression.Continue, expression.NewNotImplementedError(n.Pos, "member access through navigation property %s is not translated", n.Navigation.Name)
	}
	t.frag.AddWhere(column(scopes, n.Scope, n.Property))
	return expression.Handled, nil
}

// column returns the column for a property resolved against scope index i.
// Columns of the active scope are bare. Enclosing lambda scopes are
// qualified with their subquery alias and the root scope with its table,
// which no subquery exposes under its own name.
func column(scopes *expression.ScopeStack, i int, p *model.Property) string {
	set := scopes.At(i).Set
	switch i {
	case scopes.Depth() - 1:
		return set.Field(p)
	case 0:
		return set.Table + "." + set.Field(p)
	}
	return alias(i) + "." + set.Field(p)
}

// alias names the subquery that binds scope index i.
func alias(i int) string {
	return "s" + strconv.Itoa(i)
}

// nullComparison translates eq and ne against null to IS [NOT] NULL.
func (t *Translator) nullComparison(ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error) {
	n := ev.Node
	operand := n.Left()
	switch {
	case n.Right().IsNull():
	case operand.IsNull():
		operand = n.Right()
	default:
		return expression.Continue, nil
	}

	grouped := expression.NeedsGroup(n, operand)
	if grouped {
		t.frag.AddWhere("(")
	}
	if err := ev.Emitter.Compute(operand, scopes); err != nil {
		return expression.Continue, err
	}
	if grouped {
		t.frag.AddWhere(")")
	}
	if n.Symbol == "eq" {
		t.frag.AddWhere("IS", "NULL")
	} else {
		t.frag.AddWhere("IS", "NOT", "NULL")
	}
	return expression.Handled, nil
}

func (t *Translator) unsupported(ev expression.Event, _ *expression.ScopeStack) (expression.Result, error) {
	return expression.Continue, expression.NewNotImplementedError(ev.Node.Pos, "operator %s has no SQL translation", ev.Node.Symbol)
}

// likeEscaper escapes LIKE wildcards with '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// like translates contains, startswith and endswith. The pattern must be a
// string literal so that its wildcards can be escaped.
func (t *Translator) like(ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error) {
	n := ev.Node
	pattern, ok := n.Right().Value.(string)
	if n.Right().Kind != expression.KindLiteral || !ok {
		return expression.Continue, expression.NewNotImplementedError(n.Pos, "%s requires a string literal pattern", n.Symbol)
	}

	pattern = likeEscaper.Replace(pattern)
	switch n.Symbol {
	case "contains":
		pattern = "%" + pattern + "%"
	case "startswith":
		pattern = pattern + "%"
	case "endswith":
		pattern = "%" + pattern
	}

	if err := ev.Emitter.Compute(n.Left(), scopes); err != nil {
		return expression.Continue, err
	}
	t.frag.AddWhere("LIKE", "?", "ESCAPE", "'!'")
	t.frag.AddParameter(pattern)
	return expression.Handled, nil
}

// concat translates to the standard || operator.
func (t *Translator) concat(ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error) {
	n := ev.Node
	t.frag.AddWhere("(")
	if err := ev.Emitter.Compute(n.Left(), scopes); err != nil {
		return expression.Continue, err
	}
	t.frag.AddWhere("||")
	if err := ev.Emitter.Compute(n.Right(), scopes); err != nil {
		return expression.Continue, err
	}
	t.frag.AddWhere(")")
	return expression.Handled, nil
}

// lambda translates any/all into one correlated subquery per referential
// constraint of the navigation property:
//
//	( origin = ANY ( SELECT code FROM airports AS s1 WHERE ... ) )
//
// Every subquery is aliased after the scope index its body runs in, so a
// lambda over the table of an enclosing scope still reaches the outer row.
// Subqueries of a composite constraint set are joined with OR and grouped.
func (t *Translator) lambda(ev expression.Event, scopes *expression.ScopeStack) (expression.Result, error) {
	n := ev.Node
	nav := n.Navigation
	source := scopes.At(n.Scope).Set

	binding := source.BindingFor(nav)
	if binding == nil || binding.Target == nil {
		return expression.Continue, expression.NewModelError("navigation property %s is not bound on entity set %s", nav.Name, source.Name)
	}
	if len(nav.Constraints) == 0 {
		return expression.Continue, expression.NewModelError("navigation property %s on entity set %s has no referential constraints", nav.Name, source.Name)
	}
	target := binding.Target

	quantifier := "ANY"
	if n.Symbol == "all" {
		quantifier = "ALL"
	}

	inner := alias(scopes.Depth())
	clauses := make([]Fragment, 0, len(nav.Constraints))
	for _, c := range nav.Constraints {
		if c.Property == nil || c.ReferencedProperty == nil {
			return expression.Continue, expression.NewModelError("navigation property %s on entity set %s has an unresolved referential constraint", nav.Name, source.Name)
		}

		body, err := t.subquery(ev, scopes, target)
		if err != nil {
			return expression.Continue, err
		}

		var clause Fragment
		clause.AddWhere("(", column(scopes, n.Scope, c.Property), "=", quantifier,
			"(", "SELECT", target.Field(c.ReferencedProperty), "FROM", target.Table, "AS", inner)
		if !body.Empty() {
			clause.AddWhere("WHERE")
			clause.Merge(body)
		}
		clause.AddWhere(")", ")")
		clauses = append(clauses, clause)
	}

	if len(clauses) == 1 {
		t.frag.Merge(clauses[0])
		return expression.Handled, nil
	}
	t.frag.AddWhere("(")
	for i, clause := range clauses {
		if i > 0 {
			t.frag.AddWhere("OR")
		}
		t.frag.Merge(clause)
	}
	t.frag.AddWhere(")")
	return expression.Handled, nil
}

// subquery compiles the lambda body against a translator cloned for target
// with target pushed as the active scope. The scope is popped on every exit.
func (t *Translator) subquery(ev expression.Event, scopes *expression.ScopeStack, target *model.EntitySet) (Fragment, error) {
	body := ev.Node.Body()
	if body == nil {
		return Fragment{}, nil
	}

	child := t.clone(target)
	emitter := ev.Emitter.Substitute(t, child)

	scopes.PushEntitySet(target, ev.Node.Variable)
	defer scopes.PopEntitySet()

	if err := emitter.Compute(body, scopes); err != nil {
		return Fragment{}, err
	}
	return child.frag.Clone(), nil
}
