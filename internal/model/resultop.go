package model

import "github.com/roach88/pipeq/internal/expr"

// ResultOperator post-processes the items produced by a query model:
// quantifiers, deduplication, aggregation, paging.
//
// Implementations live in package resultop.
type ResultOperator interface {
	// Name is the operator name used in diagnostics, e.g. "All".
	Name() string

	// Clone copies the operator. Owned expressions are rewritten through
	// ctx so that they reference cloned query sources.
	Clone(ctx *CloneContext) ResultOperator

	// ExecuteInMemory applies the operator to a materialized sequence.
	ExecuteInMemory(items []any) (any, error)

	// OutputDataInfo infers the output shape from the input shape.
	OutputDataInfo(input DataInfo) (DataInfo, error)

	// TransformExpressions replaces every owned expression with fn(e).
	TransformExpressions(fn func(expr.Expr) expr.Expr)

	String() string
}
