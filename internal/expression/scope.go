package expression

import "github.com/roach88/odataql/internal/model"

// Scope is an entity set in which unqualified identifiers resolve.
type Scope struct {
	Set      *model.EntitySet
	Type     *model.EntityType
	Variable string
}

// ScopeStack tracks the active scopes during parsing and translation.
// The bottom entry is the root entity set of the request; lambdas push and
// pop the set they quantify over.
type ScopeStack struct {
	scopes []Scope
}

// NewScopeStack creates a stack holding the root entity set.
func NewScopeStack(root *model.EntitySet) *ScopeStack {
	s := &ScopeStack{}
	s.PushEntitySet(root, "$it")
	return s
}

// Push adds a scope on top of the stack.
func (s *ScopeStack) Push(scope Scope) {
	s.scopes = append(s.scopes, scope)
}

// Pop removes the top scope. Popping the root is a programming error.
func (s *ScopeStack) Pop() Scope {
	if len(s.scopes) <= 1 {
		panic("expression: pop of root scope")
	}
	top := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	return top
}

// PushEntitySet pushes set, optionally named by a range variable.
func (s *ScopeStack) PushEntitySet(set *model.EntitySet, variable string) {
	s.Push(Scope{Set: set, Type: set.Type, Variable: variable})
}

// PopEntitySet pops the top scope and returns its set.
func (s *ScopeStack) PopEntitySet() *model.EntitySet {
	return s.Pop().Set
}

// Top returns the innermost scope.
func (s *ScopeStack) Top() Scope {
	return s.scopes[len(s.scopes)-1]
}

// Root returns the bottom scope.
func (s *ScopeStack) Root() Scope {
	return s.scopes[0]
}

// At returns the scope at index i, counted from the root.
func (s *ScopeStack) At(i int) Scope {
	return s.scopes[i]
}

// Depth returns the number of active scopes.
func (s *ScopeStack) Depth() int {
	return len(s.scopes)
}

// Lookup returns the index of the scope bound to variable, searching from
// the top.
func (s *ScopeStack) Lookup(variable string) (int, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].Variable == variable {
			return i, true
		}
	}
	return 0, false
}
