package querysql

import "strings"

// Fragment accumulates WHERE clause text and positional parameters.
//
// Each lambda scope compiles into its own Fragment, which is merged into the
// parent afterwards. Copies share storage; use Clone for an independent one.
type Fragment struct {
	where  []string
	params []any
}

// AddWhere appends text pieces. Pieces are joined with single spaces.
func (f *Fragment) AddWhere(pieces ...string) {
	f.where = append(f.where, pieces...)
}

// AttachWhere appends suffix to the last piece without a separating space.
func (f *Fragment) AttachWhere(suffix string) {
	if len(f.where) == 0 {
		f.where = append(f.where, suffix)
		return
	}
	f.where[len(f.where)-1] += suffix
}

// AddParameter appends a bound value for the next placeholder.
func (f *Fragment) AddParameter(v any) {
	f.params = append(f.params, v)
}

// Merge appends other's text and parameters, preserving their order.
func (f *Fragment) Merge(other Fragment) {
	f.where = append(f.where, other.where...)
	f.params = append(f.params, other.params...)
}

// Clone returns an independent copy.
func (f Fragment) Clone() Fragment {
	return Fragment{
		where:  append([]string(nil), f.where...),
		params: append([]any(nil), f.params...),
	}
}

// Where returns the accumulated clause text.
func (f Fragment) Where() string {
	return strings.Join(f.where, " ")
}

// Parameters returns a copy of the bound values in placeholder order.
func (f Fragment) Parameters() []any {
	return append([]any(nil), f.params...)
}

// Placeholders counts the positional placeholders in the clause text.
func (f Fragment) Placeholders() int {
	n := 0
	for _, piece := range f.where {
		n += strings.Count(piece, "?")
	}
	return n
}

// Empty reports whether no text has been accumulated.
func (f Fragment) Empty() bool {
	return len(f.where) == 0
}
