package model

import (
	"fmt"
	"strings"

	"github.com/roach88/pipeq/internal/expr"
)

// QueryModel is the intermediate representation of one query.
//
// BodyClauses are append-only during generation and keep operator order.
// SelectClause.Selector is replaced by each node that changes the shape of
// the stream; the last writer wins.
type QueryModel struct {
	MainFromClause  *MainFromClause
	BodyClauses     []BodyClause
	SelectClause    *SelectClause
	ResultOperators []ResultOperator
}

// New creates a query model over from with the given select clause.
func New(from *MainFromClause, sel *SelectClause) *QueryModel {
	return &QueryModel{MainFromClause: from, SelectClause: sel}
}

// AddBodyClause appends c after the existing body clauses.
func (qm *QueryModel) AddBodyClause(c BodyClause) {
	qm.BodyClauses = append(qm.BodyClauses, c)
}

// SetSelector replaces the projection.
func (qm *QueryModel) SetSelector(e expr.Expr) {
	qm.SelectClause.Selector = e
}

// AddResultOperator appends op after the existing result operators.
func (qm *QueryModel) AddResultOperator(op ResultOperator) {
	qm.ResultOperators = append(qm.ResultOperators, op)
}

// LastBodyClause returns the most recently added body clause, or nil.
func (qm *QueryModel) LastBodyClause() BodyClause {
	if len(qm.BodyClauses) == 0 {
		return nil
	}
	return qm.BodyClauses[len(qm.BodyClauses)-1]
}

// QuerySources returns every query source of the model in clause order.
// A group join contributes both its inner join and itself.
func (qm *QueryModel) QuerySources() []expr.QuerySource {
	out := []expr.QuerySource{qm.MainFromClause}
	for _, c := range qm.BodyClauses {
		switch c := c.(type) {
		case *JoinClause:
			out = append(out, c)
		case *GroupJoinClause:
			out = append(out, c.JoinClause, c)
		}
	}
	return out
}

// NewName returns an item name starting with prefix that no query source
// of the model uses yet.
func (qm *QueryModel) NewName(prefix string) string {
	used := make(map[string]bool)
	for _, s := range qm.QuerySources() {
		used[s.ItemName()] = true
	}
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if !used[name] {
			return name
		}
	}
}

// OutputDataInfo infers the shape of the model's result: the selector's
// sequence, transformed by each result operator in turn.
func (qm *QueryModel) OutputDataInfo() (DataInfo, error) {
	var info DataInfo = SequenceInfo{
		ItemType:       expr.TypeOf(qm.SelectClause.Selector),
		ItemExpression: qm.SelectClause.Selector,
	}
	for _, op := range qm.ResultOperators {
		next, err := op.OutputDataInfo(info)
		if err != nil {
			return nil, err
		}
		info = next
	}
	return info, nil
}

// ResultType implements expr.Query.
func (qm *QueryModel) ResultType() expr.Type {
	info, err := qm.OutputDataInfo()
	if err != nil {
		return expr.TypeAny
	}
	return info.DataType()
}

// TransformExpressions applies fn to every expression of every clause and
// result operator.
func (qm *QueryModel) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	qm.MainFromClause.TransformExpressions(fn)
	for _, c := range qm.BodyClauses {
		c.TransformExpressions(fn)
	}
	qm.SelectClause.TransformExpressions(fn)
	for _, op := range qm.ResultOperators {
		op.TransformExpressions(fn)
	}
}

// Clone returns a deep copy whose expressions reference the copy's own
// query sources.
func (qm *QueryModel) Clone() *QueryModel {
	return qm.CloneWith(NewCloneContext(nil))
}

// CloneWith clones the model, recording the original-to-clone source
// mapping in ctx.
func (qm *QueryModel) CloneWith(ctx *CloneContext) *QueryModel {
	out := &QueryModel{MainFromClause: qm.MainFromClause.Clone(ctx)}
	for _, c := range qm.BodyClauses {
		out.BodyClauses = append(out.BodyClauses, c.CloneBody(ctx))
	}
	out.SelectClause = qm.SelectClause.Clone(ctx)
	for _, op := range qm.ResultOperators {
		out.ResultOperators = append(out.ResultOperators, op.Clone(ctx))
	}
	return out
}

func (qm *QueryModel) String() string {
	parts := []string{qm.MainFromClause.String()}
	for _, c := range qm.BodyClauses {
		parts = append(parts, c.String())
	}
	parts = append(parts, qm.SelectClause.String())
	s := strings.Join(parts, " ")
	for _, op := range qm.ResultOperators {
		s += " => " + op.String()
	}
	return s
}
