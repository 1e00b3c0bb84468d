package expression

import (
	"strconv"

	"github.com/roach88/odataql/internal/model"
)

// Parser builds expression trees for one entity set.
//
// A Parser is not safe for concurrent use; each request gets its own.
type Parser struct {
	lexer     *Lexer
	scopes    *ScopeStack
	operators Operators
	functions Functions
}

// Option configures a Parser.
type Option func(*Parser)

// WithOperators replaces the operator table.
func WithOperators(ops Operators) Option {
	return func(p *Parser) {
		p.operators = ops
	}
}

// WithFunctions replaces the function table.
func WithFunctions(fns Functions) Option {
	return func(p *Parser) {
		p.functions = fns
	}
}

// NewParser creates a parser whose root scope is set.
func NewParser(set *model.EntitySet, opts ...Option) *Parser {
	p := &Parser{
		scopes:    NewScopeStack(set),
		operators: DefaultOperators(),
		functions: DefaultFunctions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scopes returns the scope stack. Translation of the parsed tree uses the
// same stack so that property scope indexes line up.
func (p *Parser) Scopes() *ScopeStack {
	return p.scopes
}

// ParseFilter parses a $filter expression.
func (p *Parser) ParseFilter(input string) (*Node, error) {
	p.lexer = NewLexer(input)
	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.lexer.AtEnd() {
		return nil, p.unexpected()
	}
	return n, nil
}

// OrderItem is one key of an $orderby clause.
type OrderItem struct {
	Expr       *Node
	Descending bool
}

// ParseOrderBy parses an $orderby clause: comma separated expressions, each
// optionally followed by asc or desc.
func (p *Parser) ParseOrderBy(input string) ([]OrderItem, error) {
	p.lexer = NewLexer(input)
	var items []OrderItem
	for {
		n, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: n}
		if dir, ok := p.lexer.Keyword("asc", "desc"); ok {
			item.Descending = dir == "desc"
		}
		items = append(items, item)

		if p.lexer.Char(',') {
			continue
		}
		if !p.lexer.AtEnd() {
			return nil, p.unexpected()
		}
		return items, nil
	}
}

type pendingOperator struct {
	op  Operator
	pos int
}

// parseExpression runs precedence climbing over one expression. It stops
// without consuming at end of input, at ')' or ',' and at any token that
// cannot continue the expression.
func (p *Parser) parseExpression() (*Node, error) {
	var (
		operands []*Node
		pending  []pendingOperator
	)

	reduce := func() error {
		top := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		n, rest, err := p.apply(top, operands)
		if err != nil {
			return err
		}
		operands = append(rest, n)
		return nil
	}

	for {
		// Operand position: prefix operators or an atom.
		tok, err := p.lexer.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenOperator {
			if op, ok := p.operators[tok.Text]; ok && op.Arity == Unary {
				if _, err := p.lexer.Next(); err != nil {
					return nil, err
				}
				pending = append(pending, pendingOperator{op: op, pos: tok.Pos})
				continue
			}
		}

		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		operands = append(operands, atom)

		// Operator position: a binary operator or the end of this expression.
		tok, err = p.lexer.Peek()
		if err != nil {
			return nil, err
		}
		// Words registered in the operator table act as binary operators
		// here even when the lexer reads them as identifiers.
		op, ok := p.operators[tok.Text]
		if !ok || op.Arity != Binary || (tok.Kind != TokenOperator && tok.Kind != TokenIdentifier) {
			break
		}
		if _, err := p.lexer.Next(); err != nil {
			return nil, err
		}
		for len(pending) > 0 && yields(pending[len(pending)-1].op, op) {
			if err := reduce(); err != nil {
				return nil, err
			}
		}
		pending = append(pending, pendingOperator{op: op, pos: tok.Pos})
	}

	for len(pending) > 0 {
		if err := reduce(); err != nil {
			return nil, err
		}
	}
	if len(operands) != 1 {
		return nil, NewParseError(p.lexer.Pos(), "malformed expression")
	}
	return operands[0], nil
}

// yields reports whether the pending operator top must be reduced before
// incoming is pushed.
func yields(top, incoming Operator) bool {
	if top.Arity == Unary {
		return incoming.Precedence <= top.Reach
	}
	if top.Precedence != incoming.Precedence {
		return top.Precedence > incoming.Precedence
	}
	return !incoming.RightAssoc
}

// apply builds the node for a pending operator from the operand stack and
// returns it with the remaining operands.
func (p *Parser) apply(pending pendingOperator, operands []*Node) (*Node, []*Node, error) {
	op := pending.op
	if op.Arity == Unary {
		if len(operands) < 1 {
			return nil, nil, NewParseError(pending.pos, "operator %s is missing its operand", op.Symbol)
		}
		operand := operands[len(operands)-1]
		if op.GroupOperand && operand.Kind == KindGroup {
			operand = operand.Left()
		}
		return NewOperatorNode(op, pending.pos, operand), operands[:len(operands)-1], nil
	}

	if len(operands) < 2 {
		return nil, nil, NewParseError(pending.pos, "operator %s is missing an operand", op.Symbol)
	}
	left, right := operands[len(operands)-2], operands[len(operands)-1]
	if op.Symbol == "in" {
		switch right.Kind {
		case KindList:
		case KindGroup:
			right = NewListNode([]*Node{right.Left()}, right.Pos)
		default:
			return nil, nil, NewParseError(right.Pos, "in requires a parenthesised list")
		}
	}
	return NewOperatorNode(op, pending.pos, left, right), operands[:len(operands)-2], nil
}

// parseAtom parses a literal, a parenthesised group or list, or a member
// path starting with an identifier.
func (p *Parser) parseAtom() (*Node, error) {
	cp := p.lexer.save()
	tok, err := p.lexer.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokenEOF:
		return nil, NewParseError(tok.Pos, "expected operand, found end of input")
	case TokenLiteral:
		return NewLiteral(tok), nil
	case TokenPunctuation:
		if tok.Text == "(" {
			return p.parseParenthesised(tok.Pos)
		}
		return nil, NewParseError(tok.Pos, "expected operand, found %q", tok.Text)
	case TokenOperator:
		// Operator words are valid property names at operand position.
		cp.restore()
		word, err := p.lexer.Identifier()
		if err != nil {
			return nil, NewParseError(tok.Pos, "expected operand, found operator %q", tok.Text)
		}
		tok = word
	}
	return p.parsePath(tok)
}

// parseParenthesised parses after an opening parenthesis. A single
// expression yields a group, a comma separated sequence yields a list.
func (p *Parser) parseParenthesised(pos int) (*Node, error) {
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	items := []*Node{first}
	for p.lexer.Char(',') {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if !p.lexer.Char(')') {
		return nil, NewParseError(pos, "unbalanced group: expected ')' at offset %d", p.lexer.Pos())
	}
	if len(items) == 1 {
		return NewGroupNode(first, pos), nil
	}
	return NewListNode(items, pos), nil
}

// parsePath resolves an identifier: a function call, a range variable
// prefix, a property, or a navigation followed by a member or lambda.
func (p *Parser) parsePath(tok Token) (*Node, error) {
	if fn, ok := p.functions[tok.Text]; ok {
		cp := p.lexer.save()
		if p.lexer.Char('(') {
			return p.parseFunction(fn, tok.Pos)
		}
		cp.restore()
	}

	scope := p.scopes.Depth() - 1
	name := tok
	if idx, ok := p.scopes.Lookup(tok.Text); ok {
		if !p.lexer.Char('/') {
			return nil, NewParseError(tok.Pos, "range variable %s must be followed by a property path", tok.Text)
		}
		member, err := p.lexer.Identifier()
		if err != nil {
			return nil, NewParseError(p.lexer.Pos(), "expected property after %s/", tok.Text)
		}
		scope, name = idx, member
	}
	return p.parseMember(scope, name)
}

func (p *Parser) parseMember(scope int, name Token) (*Node, error) {
	typ := p.scopes.At(scope).Type

	if prop := typ.Property(name.Text); prop != nil {
		if p.lexer.Char('/') {
			return nil, NewParseError(name.Pos, "property %s has no members", name.Text)
		}
		return NewPropertyNode(prop, scope, name.Pos), nil
	}

	nav := typ.NavigationProperty(name.Text)
	if nav == nil {
		return nil, NewUnknownPropertyError(name.Pos, name.Text, typ.Name)
	}
	if !p.lexer.Char('/') {
		return nil, NewParseError(name.Pos, "navigation property %s must be followed by a member or lambda", name.Text)
	}

	cp := p.lexer.save()
	if quantifier, ok := p.lexer.Keyword("any", "all"); ok {
		if p.lexer.Char('(') {
			return p.parseLambda(scope, nav, quantifier, cp.pos)
		}
		cp.restore()
	}

	member, err := p.lexer.Identifier()
	if err != nil {
		return nil, NewParseError(p.lexer.Pos(), "expected member after %s/", name.Text)
	}
	if nav.Collection {
		return nil, NewParseError(name.Pos, "collection navigation %s requires any or all", name.Text)
	}
	if nav.Target == nil {
		return nil, NewModelError("navigation property %s on %s has no target type", nav.Name, typ.Name)
	}
	prop := nav.Target.Property(member.Text)
	if prop == nil {
		return nil, NewUnknownPropertyError(member.Pos, member.Text, nav.Target.Name)
	}
	n := NewPropertyNode(prop, scope, name.Pos)
	n.Navigation = nav
	return n, nil
}

// parseLambda parses a quantifier after "any(" or "all(". The target set is
// pushed for the body and popped on every exit path.
func (p *Parser) parseLambda(scope int, nav *model.NavigationProperty, quantifier string, pos int) (*Node, error) {
	if !nav.Collection {
		return nil, NewParseError(pos, "%s requires a collection navigation, %s is single-valued", quantifier, nav.Name)
	}

	if p.lexer.Char(')') {
		if quantifier == "all" {
			return nil, NewParseError(pos, "all requires a predicate")
		}
		n := NewLambdaNode(quantifier, nav, "", pos, nil)
		n.Scope = scope
		return n, nil
	}

	variable, err := p.lexer.Identifier()
	if err != nil {
		return nil, NewParseError(p.lexer.Pos(), "expected range variable in %s", quantifier)
	}
	if _, taken := p.scopes.Lookup(variable.Text); taken {
		return nil, NewParseError(variable.Pos, "range variable %s is already defined", variable.Text)
	}
	if !p.lexer.Char(':') {
		return nil, NewParseError(p.lexer.Pos(), "expected ':' after range variable %s", variable.Text)
	}

	source := p.scopes.At(scope).Set
	binding := source.BindingFor(nav)
	if binding == nil || binding.Target == nil {
		return nil, NewModelError("navigation property %s is not bound on entity set %s", nav.Name, source.Name)
	}

	p.scopes.PushEntitySet(binding.Target, variable.Text)
	defer p.scopes.PopEntitySet()

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.lexer.Char(')') {
		return nil, NewParseError(pos, "unbalanced lambda: expected ')' at offset %d", p.lexer.Pos())
	}

	n := NewLambdaNode(quantifier, nav, variable.Text, pos, body)
	n.Scope = scope
	return n, nil
}

// parseFunction parses call arguments after the opening parenthesis.
func (p *Parser) parseFunction(fn Function, pos int) (*Node, error) {
	var args []*Node
	if !p.lexer.Char(')') {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.lexer.Char(',') {
				continue
			}
			if p.lexer.Char(')') {
				break
			}
			return nil, NewParseError(pos, "unbalanced call to %s: expected ')' at offset %d", fn.Name, p.lexer.Pos())
		}
	}
	if len(args) < fn.MinArgs || len(args) > fn.MaxArgs {
		return nil, NewParseError(pos, "%s takes %s, got %d", fn.Name, argCount(fn), len(args))
	}
	return NewFunctionNode(fn.Name, pos, args...), nil
}

func argCount(fn Function) string {
	switch {
	case fn.MinArgs == fn.MaxArgs && fn.MinArgs == 1:
		return "1 argument"
	case fn.MinArgs == fn.MaxArgs:
		return strconv.Itoa(fn.MinArgs) + " arguments"
	default:
		return strconv.Itoa(fn.MinArgs) + " to " + strconv.Itoa(fn.MaxArgs) + " arguments"
	}
}

func (p *Parser) unexpected() error {
	tok, err := p.lexer.Peek()
	if err != nil {
		return err
	}
	if tok.Is(TokenPunctuation, ")") {
		return NewParseError(tok.Pos, "unbalanced group: unexpected ')'")
	}
	return NewParseError(tok.Pos, "unexpected %s", tok)
}
