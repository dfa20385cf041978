// Package querysql compiles query models to parameterized SQLite SQL.
//
// A model compiles to a single SELECT. Result operators are folded into it
// in stage order: Distinct, then Skip and Take, then at most one of Count,
// Any, All or First. Operators that do not fit that order are returned as
// Statement.Residual for in-memory execution over the projected items.
//
// All values are parameterized, never interpolated.
package querysql
