package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
)

// countOp is a minimal result operator used to exercise shape folding.
type countOp struct{}

func (countOp) Name() string                                    { return "Count" }
func (countOp) Clone(*CloneContext) ResultOperator              { return countOp{} }
func (countOp) ExecuteInMemory(items []any) (any, error)        { return int64(len(items)), nil }
func (countOp) TransformExpressions(func(expr.Expr) expr.Expr)  {}
func (countOp) String() string                                  { return "Count()" }
func (countOp) OutputDataInfo(in DataInfo) (DataInfo, error) {
	if _, err := RequireSequence("Count", in); err != nil {
		return nil, err
	}
	return ScalarInfo{Type: expr.TypeInt}, nil
}

func orderModel(t *testing.T) (*QueryModel, *MainFromClause, *JoinClause) {
	t.Helper()
	from := NewMainFromClause("o", "Order", expr.NewTableRef("orders", "Order"))
	qm := New(from, NewSelectClause(expr.Ref(from)))

	join := NewJoinClause("c", "Customer", expr.NewTableRef("customers", "Customer"), nil, nil)
	join.OuterKeySelector = expr.NewMember(expr.Ref(from), "customerId")
	join.InnerKeySelector = expr.NewMember(expr.Ref(join), "id")
	qm.AddBodyClause(join)
	qm.AddBodyClause(NewWhereClause(expr.NewBinary(expr.OpGreater, expr.NewMember(expr.Ref(from), "total"), expr.NewConstant(100))))
	qm.AddBodyClause(NewOrderByClause(Ordering{Expression: expr.NewMember(expr.Ref(join), "name"), Direction: Ascending}))
	qm.SetSelector(expr.NewObject(
		expr.Field{Name: "id", Value: expr.NewMember(expr.Ref(from), "id")},
		expr.Field{Name: "who", Value: expr.NewMember(expr.Ref(join), "name")},
	))
	return qm, from, join
}

func TestQueryModel_String(t *testing.T) {
	qm, _, _ := orderModel(t)
	qm.AddResultOperator(countOp{})

	assert.Equal(t,
		"from o in orders join c in customers on [o].customerId equals [c].id "+
			"where ([o].total > 100) orderby [c].name asc select new {id = [o].id, who = [c].name} => Count()",
		qm.String())
}

func TestQueryModel_OutputDataInfo(t *testing.T) {
	qm, from, _ := orderModel(t)

	info, err := qm.OutputDataInfo()
	require.NoError(t, err)
	assert.Equal(t, KindSequence, info.Kind())
	assert.Equal(t, expr.SequenceOf(expr.TypeObject), qm.ResultType())

	qm.SetSelector(expr.Ref(from))
	qm.AddResultOperator(countOp{})
	info, err = qm.OutputDataInfo()
	require.NoError(t, err)
	assert.Equal(t, ScalarInfo{Type: expr.TypeInt}, info)
}

func TestQueryModel_OutputDataInfo_ShapeError(t *testing.T) {
	qm, _, _ := orderModel(t)
	qm.AddResultOperator(countOp{})
	qm.AddResultOperator(countOp{})

	_, err := qm.OutputDataInfo()
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, KindScalar, shapeErr.Actual)
	assert.Equal(t, "Count: expected sequence input, got scalar of int", err.Error())
	assert.Equal(t, expr.TypeAny, qm.ResultType())
}

func TestQueryModel_CloneRemapsSources(t *testing.T) {
	qm, from, join := orderModel(t)

	ctx := NewCloneContext(nil)
	clone := qm.CloneWith(ctx)

	assert.Equal(t, qm.String(), clone.String())
	assert.NotSame(t, from, clone.MainFromClause)
	assert.Equal(t, 2, ctx.Mapping.Len())

	cloneJoin := clone.BodyClauses[0].(*JoinClause)
	assert.NotSame(t, join, cloneJoin)
	inner := cloneJoin.InnerKeySelector.(*expr.Member).Target.(*expr.QuerySourceRef)
	assert.Same(t, cloneJoin, inner.Source)

	for _, src := range expr.QuerySources(clone.SelectClause.Selector) {
		assert.NotSame(t, from, src)
		assert.NotSame(t, join, src)
	}
}

func TestQueryModel_CloneGroupJoin(t *testing.T) {
	from := NewMainFromClause("o", "Order", expr.NewTableRef("orders", "Order"))
	qm := New(from, NewSelectClause(expr.Ref(from)))
	join := NewJoinClause("c", "Customer", expr.NewTableRef("customers", "Customer"), expr.NewMember(expr.Ref(from), "id"), nil)
	join.InnerKeySelector = expr.NewMember(expr.Ref(join), "orderId")
	gj := NewGroupJoinClause("cs", expr.SequenceOf("Customer"), join)
	qm.AddBodyClause(gj)
	qm.SetSelector(expr.Ref(gj))

	clone := qm.Clone()
	cloneGJ := clone.BodyClauses[0].(*GroupJoinClause)
	assert.NotSame(t, gj, cloneGJ)
	assert.Same(t, cloneGJ, clone.SelectClause.Selector.(*expr.QuerySourceRef).Source)
	assert.Equal(t, "from o in orders join c in customers on [o].id equals [c].orderId into cs select [cs]", clone.String())
}

func TestQueryModel_CloneNestedSubQuery(t *testing.T) {
	outer, ofrom, _ := orderModel(t)

	ifrom := NewMainFromClause("l", "Line", expr.NewTableRef("lines", "Line"))
	inner := New(ifrom, NewSelectClause(expr.Ref(ifrom)))
	inner.AddBodyClause(NewWhereClause(expr.NewBinary(expr.OpEqual,
		expr.NewMember(expr.Ref(ifrom), "orderId"), expr.NewMember(expr.Ref(ofrom), "id"))))
	outer.AddBodyClause(NewWhereClause(expr.NewSubQuery(inner)))

	clone := outer.Clone()
	where := clone.BodyClauses[len(clone.BodyClauses)-1].(*WhereClause)
	sub := where.Predicate.(*expr.SubQuery).Query.(*QueryModel)
	assert.NotSame(t, inner, sub)

	// The correlated reference follows the cloned outer source.
	pred := sub.BodyClauses[0].(*WhereClause).Predicate.(*expr.Binary)
	ref := pred.Right.(*expr.Member).Target.(*expr.QuerySourceRef)
	assert.Same(t, clone.MainFromClause, ref.Source)
}

func TestQueryModel_NewName(t *testing.T) {
	qm, _, _ := orderModel(t)
	assert.Equal(t, "q0", qm.NewName("q"))

	from := NewMainFromClause("q0", "", expr.NewTableRef("t", ""))
	qm2 := New(from, NewSelectClause(expr.Ref(from)))
	assert.Equal(t, "q1", qm2.NewName("q"))
}

func TestQueryModel_TransformExpressions(t *testing.T) {
	qm, _, _ := orderModel(t)

	seen := 0
	qm.TransformExpressions(func(e expr.Expr) expr.Expr {
		seen++
		return e
	})
	// from, outer key, inner key, inner sequence, where, orderby, select
	assert.Equal(t, 7, seen)
}

type recordingVisitor struct {
	calls []string
	stop  string
}

func (v *recordingVisitor) rec(s string) error {
	v.calls = append(v.calls, s)
	if s == v.stop {
		return errors.New("stop")
	}
	return nil
}

func (v *recordingVisitor) VisitMainFromClause(*MainFromClause, *QueryModel) error { return v.rec("from") }
func (v *recordingVisitor) VisitWhereClause(*WhereClause, *QueryModel, int) error  { return v.rec("where") }
func (v *recordingVisitor) VisitJoinClause(*JoinClause, *QueryModel, int) error    { return v.rec("join") }
func (v *recordingVisitor) VisitGroupJoinClause(*GroupJoinClause, *QueryModel, int) error {
	return v.rec("groupjoin")
}
func (v *recordingVisitor) VisitOrderByClause(*OrderByClause, *QueryModel, int) error {
	return v.rec("orderby")
}
func (v *recordingVisitor) VisitSelectClause(*SelectClause, *QueryModel) error { return v.rec("select") }
func (v *recordingVisitor) VisitResultOperator(ResultOperator, *QueryModel, int) error {
	return v.rec("op")
}

func TestQueryModel_Accept(t *testing.T) {
	qm, _, _ := orderModel(t)
	qm.AddResultOperator(countOp{})

	v := &recordingVisitor{}
	require.NoError(t, qm.Accept(v))
	assert.Equal(t, []string{"from", "join", "where", "orderby", "select", "op"}, v.calls)

	v = &recordingVisitor{stop: "where"}
	require.Error(t, qm.Accept(v))
	assert.Equal(t, []string{"from", "join", "where"}, v.calls)
}
