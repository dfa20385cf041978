package resultop

import (
	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// Localize returns a copy of op whose expressions are rewritten from the
// query model's sources into lambdas over the items projected by selector,
// so that the copy can run with ExecuteInMemory.
//
// Expressions that are already lambdas are kept. When an expression
// depends on data the selector does not project, Localize returns a
// NotLocallyEvaluableError.
func Localize(op model.ResultOperator, selector expr.Expr) (model.ResultOperator, error) {
	out := op.Clone(model.NewCloneContext(nil))
	var firstErr error
	out.TransformExpressions(func(e expr.Expr) expr.Expr {
		if _, ok := e.(*expr.Lambda); ok || firstErr != nil {
			return e
		}
		l, err := expr.ReverseResolve(selector, e)
		if err != nil {
			firstErr = err
			return e
		}
		return l
	})
	if firstErr != nil {
		return nil, &NotLocallyEvaluableError{Operator: op.String(), Field: "Predicate", Err: firstErr}
	}
	return out, nil
}
