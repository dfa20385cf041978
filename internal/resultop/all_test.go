package resultop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

func greaterThan(n int) *expr.Lambda {
	t := expr.NewParameter("t", expr.TypeInt)
	return expr.NewLambda(expr.NewBinary(expr.OpGreater, t, expr.NewConstant(n)), t)
}

func sourceRefPredicate() (*All, *model.MainFromClause) {
	x := model.NewMainFromClause("x", expr.TypeInt, expr.NewTableRef("xs", expr.TypeInt))
	i := expr.NewParameter("i", expr.TypeInt)
	return NewAll(expr.NewLambda(expr.NewBinary(expr.OpGreater, i, expr.Ref(x)), i)), x
}

func TestAll_ExecuteInMemory(t *testing.T) {
	op := NewAll(greaterThan(2))

	got, err := op.ExecuteInMemory([]any{3, 4})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = op.ExecuteInMemory([]any{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = op.ExecuteInMemory(nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestAll_ExecuteInMemory_Idempotent(t *testing.T) {
	op := NewAll(greaterThan(2))
	items := []any{1, 2, 3, 4}

	first, err := op.ExecuteInMemory(items)
	require.NoError(t, err)
	second, err := op.ExecuteInMemory(items)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []any{1, 2, 3, 4}, items)
}

func TestAll_ExecuteInMemory_NotLocallyEvaluable(t *testing.T) {
	op, _ := sourceRefPredicate()

	_, err := op.ExecuteInMemory([]any{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotLocallyEvaluable))
	assert.True(t, errors.Is(err, expr.ErrNotCompilable))

	var nle *NotLocallyEvaluableError
	require.True(t, errors.As(err, &nle))
	assert.Equal(t, "All(i => (i > [x]))", nle.Operator)
	assert.Equal(t, "cannot execute the result operator 'All(i => (i > [x]))' in memory because the Predicate cannot be evaluated",
		err.Error())
}

func TestAll_ExecuteInMemory_ResolvedPredicate(t *testing.T) {
	x := model.NewMainFromClause("x", expr.TypeInt, expr.NewTableRef("xs", expr.TypeInt))
	op := NewAll(expr.NewBinary(expr.OpGreater, expr.Ref(x), expr.NewConstant(2)))

	_, err := op.ExecuteInMemory([]any{3})
	assert.ErrorIs(t, err, ErrNotLocallyEvaluable)
}

func TestAll_OutputDataInfo(t *testing.T) {
	op := NewAll(greaterThan(2))

	info, err := op.OutputDataInfo(model.SequenceInfo{ItemType: expr.TypeInt})
	require.NoError(t, err)
	assert.Equal(t, model.ScalarInfo{Type: expr.TypeBool}, info)
	assert.Equal(t, expr.TypeBool, info.DataType())

	_, err = op.OutputDataInfo(model.ScalarInfo{Type: expr.TypeInt})
	var shapeErr *model.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, model.KindSequence, shapeErr.Expected)
	assert.Equal(t, model.KindScalar, shapeErr.Actual)
}

func TestAll_Clone(t *testing.T) {
	op, x := sourceRefPredicate()

	// Unmapped sources keep the predicate's identity.
	clone := op.Clone(model.NewCloneContext(nil)).(*All)
	assert.NotSame(t, op, clone)
	assert.Same(t, op.Predicate, clone.Predicate)

	y := model.NewMainFromClause("y", expr.TypeInt, expr.NewTableRef("ys", expr.TypeInt))
	mapping := model.NewQuerySourceMapping()
	mapping.Add(x, expr.Ref(y))

	clone = op.Clone(model.NewCloneContext(mapping)).(*All)
	assert.Equal(t, "All(i => (i > [y]))", clone.String())
	for _, src := range expr.QuerySources(clone.Predicate) {
		assert.Same(t, y, src)
	}
	assert.Equal(t, "All(i => (i > [x]))", op.String())
}

func TestAll_TransformExpressions(t *testing.T) {
	op := NewAll(greaterThan(2))
	replacement := greaterThan(5)

	op.TransformExpressions(func(e expr.Expr) expr.Expr {
		assert.Equal(t, "t => (t > 2)", expr.Format(e))
		return replacement
	})
	assert.Same(t, replacement, op.Predicate)
}

func TestAll_String(t *testing.T) {
	op, _ := sourceRefPredicate()
	assert.Equal(t, "All(i => (i > [x]))", op.String())
}
