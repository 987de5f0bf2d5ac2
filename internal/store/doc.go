// Package store is a SQLite catalog of built statements.
//
// A statement is recorded under its fingerprint (see querysql.Result.Fingerprint),
// so builds that differ only in bound values share one statements row. Each
// distinct parameter set is kept once per statement in bindings, keyed by
// ir.BindingHash of the parameter map.
//
// The catalog stores statements; it never executes them.
//
// # Deterministic reads
//
// All list queries order by seq ASC, then the row key COLLATE BINARY, so two
// catalogs built from the same sequence of Record calls read back identically.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
