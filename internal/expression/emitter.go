package expression

import "fmt"

// Result tells the emitter whether a listener fully translated an event.
type Result int

const (
	// Continue lets the next listener and the default traversal run.
	Continue Result = iota

	// Handled claims the event. For a node event the default traversal of
	// the node's operands is skipped.
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "continue"
}

// EventKind distinguishes node events from the tokens the default traversal
// emits between and around operands.
type EventKind int

const (
	// EventNode is emitted when a node is entered, before its operands.
	EventNode EventKind = iota

	// EventSymbol carries the node's own symbol: infix for binary
	// operators, prefix for unary operators and function names.
	EventSymbol

	// EventGroupStart and EventGroupEnd bracket a parenthesised operand.
	EventGroupStart
	EventGroupEnd

	// EventSeparator is emitted between list items and call arguments.
	EventSeparator
)

func (k EventKind) String() string {
	switch k {
	case EventNode:
		return "node"
	case EventSymbol:
		return "symbol"
	case EventGroupStart:
		return "group-start"
	case EventGroupEnd:
		return "group-end"
	case EventSeparator:
		return "separator"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to listeners during traversal.
type Event struct {
	Kind EventKind
	Node *Node

	// Emitter is the emitter delivering the event. Listeners that take
	// over a node use it to compute the node's children.
	Emitter *Emitter
}

// Category returns the category of the event's node.
func (e Event) Category() Category {
	return e.Node.Category
}

// Listener translates traversal events into a backend representation.
type Listener interface {
	Handle(ev Event, scopes *ScopeStack) (Result, error)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event, scopes *ScopeStack) (Result, error)

// Handle calls f.
func (f ListenerFunc) Handle(ev Event, scopes *ScopeStack) (Result, error) {
	return f(ev, scopes)
}

// Emitter delivers events to an ordered chain of listeners and drives the
// default traversal of unclaimed nodes.
type Emitter struct {
	listeners []Listener
}

// NewEmitter creates an emitter with listeners in registration order.
func NewEmitter(listeners ...Listener) *Emitter {
	return &Emitter{listeners: listeners}
}

// Listen appends a listener to the chain.
func (e *Emitter) Listen(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Listeners returns the registered listeners in order.
func (e *Emitter) Listeners() []Listener {
	return e.listeners
}

// Substitute returns a new emitter whose chain has old replaced by repl.
// The receiver is not modified. Listeners are compared with ==, so old
// must not be a ListenerFunc.
func (e *Emitter) Substitute(old, repl Listener) *Emitter {
	listeners := make([]Listener, len(e.listeners))
	for i, l := range e.listeners {
		if l == old {
			l = repl
		}
		listeners[i] = l
	}
	return &Emitter{listeners: listeners}
}

// Emit delivers ev to each listener in order until one returns Handled or
// an error.
func (e *Emitter) Emit(ev Event, scopes *ScopeStack) (Result, error) {
	ev.Emitter = e
	for _, l := range e.listeners {
		res, err := l.Handle(ev, scopes)
		if err != nil {
			return Continue, err
		}
		if res == Handled {
			return Handled, nil
		}
	}
	return Continue, nil
}

// Compute emits n and, unless a listener handled it, traverses its operands
// left to right emitting symbol, group and separator tokens according to
// the node's kind and arity.
func (e *Emitter) Compute(n *Node, scopes *ScopeStack) error {
	res, err := e.Emit(Event{Kind: EventNode, Node: n}, scopes)
	if err != nil {
		return err
	}
	if res == Handled {
		return nil
	}

	switch n.Kind {
	case KindLiteral, KindProperty, KindLambda:
		return NewNotImplementedError(n.Pos, "no translation for %s %s", n.Category, n)

	case KindGroup:
		return e.group(n, scopes, n.Left())

	case KindList:
		if err := e.token(EventGroupStart, n, scopes); err != nil {
			return err
		}
		if err := e.sequence(n, scopes); err != nil {
			return err
		}
		return e.token(EventGroupEnd, n, scopes)

	case KindFunction:
		if err := e.token(EventSymbol, n, scopes); err != nil {
			return err
		}
		if err := e.sequence(n, scopes); err != nil {
			return err
		}
		return e.token(EventGroupEnd, n, scopes)

	case KindOperator:
		if n.Arity == Unary {
			if err := e.token(EventSymbol, n, scopes); err != nil {
				return err
			}
			if n.GroupOperand {
				return e.group(n, scopes, n.Left())
			}
			return e.Compute(n.Left(), scopes)
		}
		if err := e.operand(n, n.Left(), scopes); err != nil {
			return err
		}
		if err := e.token(EventSymbol, n, scopes); err != nil {
			return err
		}
		return e.operand(n, n.Right(), scopes)
	}

	return NewNotImplementedError(n.Pos, "no traversal for %s", n)
}

// operand computes an operand of a binary operator. A comparison nested in
// a comparison is grouped since SQL comparisons do not chain.
func (e *Emitter) operand(parent, op *Node, scopes *ScopeStack) error {
	if NeedsGroup(parent, op) {
		return e.group(op, scopes, op)
	}
	return e.Compute(op, scopes)
}

// NeedsGroup reports whether op must be grouped when emitted as an operand
// of parent.
func NeedsGroup(parent, op *Node) bool {
	return parent.Category == CategoryComparison && op.Category == CategoryComparison
}

func (e *Emitter) group(n *Node, scopes *ScopeStack, inner *Node) error {
	if err := e.token(EventGroupStart, n, scopes); err != nil {
		return err
	}
	if err := e.Compute(inner, scopes); err != nil {
		return err
	}
	return e.token(EventGroupEnd, n, scopes)
}

func (e *Emitter) sequence(n *Node, scopes *ScopeStack) error {
	for i, op := range n.Operands {
		if i > 0 {
			if err := e.token(EventSeparator, n, scopes); err != nil {
				return err
			}
		}
		if err := e.Compute(op, scopes); err != nil {
			return err
		}
	}
	return nil
}

// token emits a traversal token. Tokens must be claimed by some listener,
// otherwise the construct has no translation.
func (e *Emitter) token(kind EventKind, n *Node, scopes *ScopeStack) error {
	res, err := e.Emit(Event{Kind: kind, Node: n}, scopes)
	if err != nil {
		return err
	}
	if res != Handled {
		return NewNotImplementedError(n.Pos, "no translation for %s of %s %q", kind, n.Category, n.Symbol)
	}
	return nil
}
