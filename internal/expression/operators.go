package expression

// Operator is an operator table entry.
type Operator struct {
	Symbol     string
	Category   Category
	Precedence int
	Arity      Arity

	// RightAssoc resolves ties between equal precedences to the right.
	RightAssoc bool

	// Reach applies to prefix operators: the operand extends over every
	// binary operator whose precedence is greater than Reach.
	Reach int

	// GroupOperand makes the default traversal parenthesise the operand.
	GroupOperand bool
}

// Operators maps a symbol to its table entry. New operators are added by
// registering an entry; the parser and emitter need no other change.
type Operators map[string]Operator

// DefaultOperators returns the operator table for $filter expressions.
func DefaultOperators() Operators {
	ops := Operators{}
	for _, op := range []Operator{
		{Symbol: "or", Category: CategoryLogical, Precedence: 1, Arity: Binary},
		{Symbol: "and", Category: CategoryLogical, Precedence: 2, Arity: Binary},
		{Symbol: "eq", Category: CategoryComparison, Precedence: 3, Arity: Binary},
		{Symbol: "ne", Category: CategoryComparison, Precedence: 3, Arity: Binary},
		{Symbol: "gt", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "ge", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "lt", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "le", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "has", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "in", Category: CategoryComparison, Precedence: 4, Arity: Binary},
		{Symbol: "add", Category: CategoryArithmetic, Precedence: 5, Arity: Binary},
		{Symbol: "sub", Category: CategoryArithmetic, Precedence: 5, Arity: Binary},
		{Symbol: "mul", Category: CategoryArithmetic, Precedence: 6, Arity: Binary},
		{Symbol: "div", Category: CategoryArithmetic, Precedence: 6, Arity: Binary},
		{Symbol: "mod", Category: CategoryArithmetic, Precedence: 6, Arity: Binary},
		{Symbol: "not", Category: CategoryLogical, Precedence: 7, Arity: Unary, RightAssoc: true, Reach: 2, GroupOperand: true},
		{Symbol: "-", Category: CategoryArithmetic, Precedence: 7, Arity: Unary, RightAssoc: true, Reach: 7},
	} {
		ops[op.Symbol] = op
	}
	return ops
}

// Function describes a callable function and its accepted argument counts.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
}

// Functions maps a function name to its description.
type Functions map[string]Function

// DefaultFunctions returns the canonical functions recognised by the parser.
// Recognition does not imply that every backend translates them.
func DefaultFunctions() Functions {
	fns := Functions{}
	for _, fn := range []Function{
		{Name: "contains", MinArgs: 2, MaxArgs: 2},
		{Name: "startswith", MinArgs: 2, MaxArgs: 2},
		{Name: "endswith", MinArgs: 2, MaxArgs: 2},
		{Name: "tolower", MinArgs: 1, MaxArgs: 1},
		{Name: "toupper", MinArgs: 1, MaxArgs: 1},
		{Name: "length", MinArgs: 1, MaxArgs: 1},
		{Name: "trim", MinArgs: 1, MaxArgs: 1},
		{Name: "concat", MinArgs: 2, MaxArgs: 2},
		{Name: "indexof", MinArgs: 2, MaxArgs: 2},
		{Name: "substring", MinArgs: 2, MaxArgs: 3},
		{Name: "round", MinArgs: 1, MaxArgs: 1},
		{Name: "floor", MinArgs: 1, MaxArgs: 1},
		{Name: "ceiling", MinArgs: 1, MaxArgs: 1},
		{Name: "year", MinArgs: 1, MaxArgs: 1},
		{Name: "month", MinArgs: 1, MaxArgs: 1},
		{Name: "day", MinArgs: 1, MaxArgs: 1},
		{Name: "hour", MinArgs: 1, MaxArgs: 1},
		{Name: "minute", MinArgs: 1, MaxArgs: 1},
		{Name: "second", MinArgs: 1, MaxArgs: 1},
	} {
		fns[fn.Name] = fn
	}
	return fns
}
