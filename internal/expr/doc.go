// Package expr provides the expression trees carried by query models.
//
// Expressions are immutable values built from a small, sealed set of node
// types. Lambdas bind formal parameters; resolution replaces those
// parameters with QuerySourceRef nodes pointing at clauses of a query model.
//
// SEALED INTERFACE:
//
// Expr uses the marker method pattern, so only types in this package
// implement it. Backends switch exhaustively over the node types:
//
//	switch e := e.(type) {
//	case *expr.Binary:
//	    // ...
//	case *expr.QuerySourceRef:
//	    // ...
//	}
//
// PARAMETER IDENTITY:
//
// Parameters are compared by pointer, never by name. Two lambdas that both
// bind a parameter called "o" bind different parameters.
//
// EVALUATION:
//
// Lambda bodies are parsed with the CEL parser (ParseLambda) and evaluated
// in memory by rendering them back to CEL (Compile). An expression that
// still references a query source cannot be evaluated outside a full query
// translation; Compile reports ErrNotCompilable for it.
package expr
