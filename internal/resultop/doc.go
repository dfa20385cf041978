// Package resultop implements the result operators of a query model:
// All, Any, Count, Distinct, First, Take and Skip.
//
// Every operator can run against a materialized sequence with
// ExecuteInMemory. Operators that own an expression (All) can only do so
// once that expression has been localized into a one-parameter lambda; see
// Localize.
package resultop
