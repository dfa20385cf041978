package resultop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

func TestDistinct_ExecuteInMemory(t *testing.T) {
	got, err := (&Distinct{}).ExecuteInMemory([]any{1, 2, 3, 2, 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 2, 3}, got)
}

func TestDistinct_ComparesCanonicalValues(t *testing.T) {
	items := []any{
		map[string]any{"id": int64(1), "name": "a"},
		map[string]any{"name": "a", "id": 1.0},
		int64(2), 2, "2",
	}
	got, err := (&Distinct{}).ExecuteInMemory(items)
	require.NoError(t, err)
	assert.Equal(t, []any{items[0], int64(2), "2"}, got)
}

func TestDistinct_OutputDataInfoPreservesItemType(t *testing.T) {
	in := model.SequenceInfo{ItemType: expr.TypeInt}
	out, err := (&Distinct{}).OutputDataInfo(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = (&Distinct{}).OutputDataInfo(model.SingleInfo{Type: expr.TypeInt})
	assert.Error(t, err)
}

func TestDistinct_CloneAndTransform(t *testing.T) {
	d := &Distinct{}
	clone := d.Clone(model.NewCloneContext(nil))
	assert.NotSame(t, d, clone)

	called := false
	d.TransformExpressions(func(e expr.Expr) expr.Expr { called = true; return e })
	assert.False(t, called)
	assert.Equal(t, "Distinct()", d.String())
}

func TestResultOperators_ExecuteInMemory(t *testing.T) {
	items := []any{5, 6, 7}
	tests := []struct {
		op   model.ResultOperator
		want any
	}{
		{&Any{}, true},
		{&Count{}, int64(3)},
		{&First{}, 5},
		{&First{OrDefault: true}, 5},
		{&Take{Count: 2}, []any{5, 6}},
		{&Take{Count: 10}, []any{5, 6, 7}},
		{&Skip{Count: 1}, []any{6, 7}},
		{&Skip{Count: 4}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := tt.op.ExecuteInMemory(items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultOperators_EmptyInput(t *testing.T) {
	got, err := (&Any{}).ExecuteInMemory(nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = (&First{OrDefault: true}).ExecuteInMemory(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = (&First{}).ExecuteInMemory(nil)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestResultOperators_OutputDataInfo(t *testing.T) {
	in := model.SequenceInfo{ItemType: "Order"}
	tests := []struct {
		op   model.ResultOperator
		want model.DataInfo
	}{
		{&Any{}, model.ScalarInfo{Type: expr.TypeBool}},
		{&Count{}, model.ScalarInfo{Type: expr.TypeInt}},
		{&First{}, model.SingleInfo{Type: "Order"}},
		{&First{OrDefault: true}, model.SingleInfo{Type: "Order", ReturnDefaultWhenEmpty: true}},
		{&Take{Count: 1}, in},
		{&Skip{Count: 1}, in},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := tt.op.OutputDataInfo(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, err = tt.op.OutputDataInfo(model.ScalarInfo{Type: expr.TypeInt})
			assert.Error(t, err)
		})
	}
}

func TestLocalize(t *testing.T) {
	from := model.NewMainFromClause("o", "Order", expr.NewTableRef("orders", "Order"))
	total := expr.NewMember(expr.Ref(from), "total")
	op := NewAll(expr.NewBinary(expr.OpGreater, total, expr.NewConstant(100)))

	local, err := Localize(op, expr.Ref(from))
	require.NoError(t, err)
	assert.Equal(t, "All(item => (item.total > 100))", local.String())
	assert.Equal(t, "All(([o].total > 100))", op.String())

	got, err := local.ExecuteInMemory([]any{
		map[string]any{"total": int64(150)},
		map[string]any{"total": int64(101)},
	})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	// Projected members are reachable through the anonymous object.
	sel := expr.NewObject(expr.Field{Name: "amount", Value: total})
	local, err = Localize(op, sel)
	require.NoError(t, err)
	assert.Equal(t, "All(item => (item.amount > 100))", local.String())
}

func TestLocalize_NotProjected(t *testing.T) {
	from := model.NewMainFromClause("o", "Order", expr.NewTableRef("orders", "Order"))
	op := NewAll(expr.NewBinary(expr.OpGreater, expr.NewMember(expr.Ref(from), "total"), expr.NewConstant(100)))

	_, err := Localize(op, expr.NewMember(expr.Ref(from), "id"))
	assert.ErrorIs(t, err, ErrNotLocallyEvaluable)
	assert.ErrorIs(t, err, expr.ErrNotCompilable)
}

func TestLocalize_ExpressionFreeOperators(t *testing.T) {
	op := &Take{Count: 3}
	local, err := Localize(op, expr.NewConstant(1))
	require.NoError(t, err)
	assert.Equal(t, op.String(), local.String())
	assert.NotSame(t, op, local)
}
