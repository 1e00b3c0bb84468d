// Package store runs compiled queries against a SQL database.
//
// A Store wraps database/sql with one of three drivers: sqlite3 (the
// default, used by the CLI and tests), postgres and mysql. It provides:
//   - Bootstrap: CREATE TABLE for every entity set of a model
//   - Insert: typed fixture rows, coerced from loosely typed input
//   - Select: execution of a compiled statement into named rows
//   - Query log: one record per executed request, ordered by seq
//
// Statements are always written with "?" placeholders. Rebind rewrites
// them for postgres.
//
// # Deterministic Query Results
//
// Query log reads use ORDER BY seq ASC, request_id ASC. Compiled SELECTs
// carry the entity key as the last ORDER BY term.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
