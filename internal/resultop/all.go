package resultop

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// All tests whether every item satisfies Predicate.
//
// Predicate is either resolved against the query model's sources (the
// form produced by clause generation) or a one-parameter lambda over the
// item (the form ExecuteInMemory requires).
type All struct {
	Predicate expr.Expr
}

// NewAll creates an All operator.
func NewAll(predicate expr.Expr) *All {
	return &All{Predicate: predicate}
}

// Name implements model.ResultOperator.
func (*All) Name() string { return "All" }

// Clone implements model.ResultOperator.
func (a *All) Clone(ctx *model.CloneContext) model.ResultOperator {
	return &All{Predicate: ctx.Rewrite(a.Predicate)}
}

// ExecuteInMemory implements model.ResultOperator.
func (a *All) ExecuteInMemory(items []any) (any, error) {
	prg, err := a.compile()
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		ok, err := prg.EvalBool(item)
		if err != nil {
			return nil, fmt.Errorf("All: item %d: %w", i, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (a *All) compile() (*expr.Program, error) {
	l, ok := a.Predicate.(*expr.Lambda)
	if !ok || len(l.Params) != 1 {
		return nil, &NotLocallyEvaluableError{Operator: a.String(), Field: "Predicate", Err: expr.ErrNotCompilable}
	}
	prg, err := expr.Compile(l)
	if err != nil {
		return nil, &NotLocallyEvaluableError{Operator: a.String(), Field: "Predicate", Err: err}
	}
	return prg, nil
}

// OutputDataInfo implements model.ResultOperator.
func (a *All) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	if _, err := model.RequireSequence(a.Name(), in); err != nil {
		return nil, err
	}
	return model.ScalarInfo{Type: expr.TypeBool}, nil
}

// TransformExpressions implements model.ResultOperator.
func (a *All) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	a.Predicate = fn(a.Predicate)
}

func (a *All) String() string {
	return "All(" + expr.Format(a.Predicate) + ")"
}
