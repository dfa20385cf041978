// Package store provides the SQLite database that compiled queries run
// against.
//
// A store holds two kinds of tables:
//   - Data tables, created from item rows with CreateTable
//   - The query log, one row per executed statement
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Data table columns are untyped. Nested objects and arrays are stored as
// canonical JSON text so identical values always compare equal in SQL.
// Query log entries are ordered by seq, never by wall time.
package store
