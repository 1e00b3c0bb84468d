package expression

import (
	"fmt"
	"strings"

	"github.com/roach88/odataql/internal/model"
)

// Kind is the structural variant of a Node.
type Kind int

const (
	KindLiteral Kind = iota
	KindProperty
	KindOperator
	KindFunction
	KindLambda
	KindGroup
	KindList
)

// Arity describes how many operands a node takes.
type Arity int

const (
	Nullary Arity = iota
	Unary
	Binary
	Variadic
)

// Category tags the events a node emits so listeners can select the
// constructs they translate.
type Category string

const (
	CategoryLiteral    Category = "literal"
	CategoryProperty   Category = "property"
	CategoryComparison Category = "comparison"
	CategoryLogical    Category = "logical"
	CategoryArithmetic Category = "arithmetic"
	CategoryFunction   Category = "function"
	CategoryLambda     Category = "lambda"
	CategoryGroup      Category = "group"
	CategoryList       Category = "list"
)

// atomPrecedence is the precedence of nodes that are never split by an
// operator: literals, properties, functions, lambdas, groups and lists.
const atomPrecedence = 8

// Node is a single AST node. A node exclusively owns its operands.
//
// Symbol, Precedence and Arity are fixed when the node is built and never
// change afterwards.
type Node struct {
	Symbol     string
	Kind       Kind
	Category   Category
	Precedence int
	Arity      Arity
	Operands   []*Node
	Pos        int

	// GroupOperand makes the default traversal wrap the single operand in
	// group markers.
	GroupOperand bool

	// Value and Type hold a literal. A null literal has a nil Value.
	Value any
	Type  model.PrimitiveType

	// Property is the resolved declared property. Scope is the index of
	// the scope it was resolved against, counted from the root.
	Property *model.Property
	Scope    int

	// Navigation is the quantified collection of a lambda, Variable its
	// range variable. A lambda has zero or one operand (the body).
	Navigation *model.NavigationProperty
	Variable   string
}

// NewLiteral builds a literal node from a literal token.
func NewLiteral(tok Token) *Node {
	return &Node{
		Symbol:     tok.Text,
		Kind:       KindLiteral,
		Category:   CategoryLiteral,
		Precedence: atomPrecedence,
		Arity:      Nullary,
		Pos:        tok.Pos,
		Value:      tok.Value,
		Type:       tok.Type,
	}
}

// NewPropertyNode builds a reference to a declared property resolved against
// the scope at index scope.
func NewPropertyNode(p *model.Property, scope, pos int) *Node {
	return &Node{
		Symbol:     p.Name,
		Kind:       KindProperty,
		Category:   CategoryProperty,
		Precedence: atomPrecedence,
		Arity:      Nullary,
		Pos:        pos,
		Property:   p,
		Scope:      scope,
	}
}

// NewOperatorNode builds an operator node from its table entry.
func NewOperatorNode(op Operator, pos int, operands ...*Node) *Node {
	return &Node{
		Symbol:       op.Symbol,
		Kind:         KindOperator,
		Category:     op.Category,
		Precedence:   op.Precedence,
		Arity:        op.Arity,
		Operands:     operands,
		Pos:          pos,
		GroupOperand: op.GroupOperand,
	}
}

// NewFunctionNode builds a function call.
func NewFunctionNode(name string, pos int, args ...*Node) *Node {
	return &Node{
		Symbol:     name,
		Kind:       KindFunction,
		Category:   CategoryFunction,
		Precedence: atomPrecedence,
		Arity:      Variadic,
		Operands:   args,
		Pos:        pos,
	}
}

// NewLambdaNode builds an any/all quantifier. body may be nil for any().
func NewLambdaNode(quantifier string, nav *model.NavigationProperty, variable string, pos int, body *Node) *Node {
	n := &Node{
		Symbol:     quantifier,
		Kind:       KindLambda,
		Category:   CategoryLambda,
		Precedence: atomPrecedence,
		Arity:      Unary,
		Pos:        pos,
		Navigation: nav,
		Variable:   variable,
	}
	if body != nil {
		n.Operands = []*Node{body}
	}
	return n
}

// NewGroupNode wraps an explicitly parenthesised expression.
func NewGroupNode(inner *Node, pos int) *Node {
	return &Node{
		Symbol:     "()",
		Kind:       KindGroup,
		Category:   CategoryGroup,
		Precedence: atomPrecedence,
		Arity:      Unary,
		Operands:   []*Node{inner},
		Pos:        pos,
	}
}

// NewListNode builds a parenthesised, comma separated list.
func NewListNode(items []*Node, pos int) *Node {
	return &Node{
		Symbol:     "[]",
		Kind:       KindList,
		Category:   CategoryList,
		Precedence: atomPrecedence,
		Arity:      Variadic,
		Operands:   items,
		Pos:        pos,
	}
}

// Left returns the first operand, or nil.
func (n *Node) Left() *Node {
	if len(n.Operands) == 0 {
		return nil
	}
	return n.Operands[0]
}

// Right returns the second operand, or nil.
func (n *Node) Right() *Node {
	if len(n.Operands) < 2 {
		return nil
	}
	return n.Operands[1]
}

// Body returns the lambda body, or nil for an argument-less any().
func (n *Node) Body() *Node {
	return n.Left()
}

// IsNull reports whether n is the null literal.
func (n *Node) IsNull() bool {
	return n != nil && n.Kind == KindLiteral && n.Value == nil
}

// String renders the tree in a fully parenthesised prefix form, used by
// tests and debug logging.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindLiteral:
		if n.Value == nil {
			return "null"
		}
		return n.Symbol
	case KindProperty:
		if n.Navigation != nil {
			return n.Navigation.Name + "/" + n.Symbol
		}
		if n.Scope > 0 {
			return fmt.Sprintf("%s@%d", n.Symbol, n.Scope)
		}
		return n.Symbol
	case KindLambda:
		if body := n.Body(); body != nil {
			return fmt.Sprintf("%s/%s(%s: %s)", n.Navigation.Name, n.Symbol, n.Variable, body)
		}
		return fmt.Sprintf("%s/%s()", n.Navigation.Name, n.Symbol)
	case KindGroup:
		return fmt.Sprintf("(%s)", n.Left())
	}

	parts := make([]string, len(n.Operands))
	for i, op := range n.Operands {
		parts[i] = op.String()
	}
	switch n.Kind {
	case KindList:
		return "[" + strings.Join(parts, ", ") + "]"
	case KindFunction:
		return n.Symbol + "(" + strings.Join(parts, ", ") + ")"
	}
	return "(" + n.Symbol + " " + strings.Join(parts, " ") + ")"
}
