// Package engine executes requests against a model and a store.
//
// ARCHITECTURE:
//
// Request Flow:
// 1. Validate the request's system query options (queryir.Validate)
// 2. Apply the page size quota, if any
// 3. Compile $filter, $orderby, $select, $top and $skip to one SELECT
// 4. Stamp the request with an ID and a seq from the logical clock
// 5. Execute on the store and append the request to the query log
//
// Every failure surfaces as a *RequestError carrying a code and the HTTP
// status a server would answer with. Compilation errors keep the code of
// the underlying expression error (LEX_ERROR, PARSE_ERROR,
// UNKNOWN_PROPERTY, NOT_IMPLEMENTED, MODEL_INCONSISTENT).
//
// Logical Clock:
// The query log is ordered by seq, never by wall time. Replay re-executes
// the log in that order and reports row count drift.
package engine
