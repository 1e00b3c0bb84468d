// Package expression parses OData $filter and $orderby expressions into
// trees and traverses them for backend translation.
//
// Parsing resolves every identifier against a stack of scopes: the root
// entity set of the request, plus one scope per enclosing any/all lambda.
//
//	p := expression.NewParser(flights)
//	n, err := p.ParseFilter("airports/any(a: a/code eq 'lhr')")
//
// Translation is driven by an Emitter. Compute emits an event for each node
// to the registered listeners; a listener that returns Handled owns the
// node's output and the default traversal of its operands is skipped.
// Unclaimed nodes are traversed left to right with symbol, group and
// separator events emitted between and around operands.
//
// Every failure is an *Error carrying a code, the byte offset when known,
// and whether the fault lies with the request or with the data model.
package expression
