// Package queryir defines the backend-neutral form of a collection read.
//
// A Request names the entity set and carries the system query options
// ($filter, $orderby, $select, $top, $skip) as given by the client. It is
// built by ParseQuery from a URL query string, or directly by callers, and
// compiled to SQL by package querysql.
//
//	[query string] → ParseQuery → [Request] → Validate → [SQL compiler]
//
// Validate covers the structural rules that hold for every backend.
// Expression checks need the data model and happen at compile time.
package queryir
