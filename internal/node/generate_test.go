package node

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/resultop"
	"github.com/roach88/pipeq/internal/testutil"
)

var customers = expr.NewTableRef("customers", "Customer")

func TestGenerate_WhereSelect(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	where, err := NewWhereNode(info("where", 1), src, testutil.Lambda(t, "o => o.total > 100"))
	w := appendNode(t, c, where, err)
	sel, err := NewSelectNode(info("select", 2), w, testutil.Lambda(t, "x => {'id': x.id}"))
	appendNode(t, c, sel, err)

	qm, ctx := generate(t, c)
	assert.Equal(t, "from o in orders where ([o].total > 100) select new {id = [o].id}", qm.String())
	assert.Equal(t, "pass-1", ctx.Token)

	clause, ok := ctx.ClauseFor(w)
	require.True(t, ok)
	assert.Same(t, qm.BodyClauses[0], clause)
	id, ok := ctx.NodeFor(qm.MainFromClause)
	require.True(t, ok)
	assert.Equal(t, src, id)
	assert.Equal(t, 2, ctx.Count())
}

func TestGenerate_ResolvesThroughProjections(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	s1, err := NewSelectNode(info("select", 1), src, testutil.Lambda(t, "o => {'amount': o.total, 'who': o.customerId}"))
	id1 := appendNode(t, c, s1, err)
	s2, err := NewSelectNode(info("select", 2), id1, testutil.Lambda(t, "p => p.amount"))
	id2 := appendNode(t, c, s2, err)
	where, err := NewWhereNode(info("where", 3), id2, testutil.Lambda(t, "a => a > 5"))
	last := appendNode(t, c, where, err)

	qm, ctx := generate(t, c)
	assert.Equal(t,
		"from o in orders where (new {amount = [o].total, who = [o].customerId}.amount > 5) "+
			"select new {amount = [o].total, who = [o].customerId}.amount",
		qm.String())

	// The terminal item resolves to source references only.
	x := expr.NewParameter("x", expr.TypeAny)
	resolved, err := c.Resolve(last, x, expr.NewBinary(expr.OpAdd, x, expr.NewConstant(1)), ctx)
	require.NoError(t, err)
	assert.Empty(t, expr.FreeParameters(resolved))
	assert.True(t, expr.ContainsQuerySourceRef(resolved))
	assert.Empty(t, expr.FreeParameters(qm.SelectClause.Selector))
}

func TestSelectNode_ResolvedSelectorIsCached(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	sel, err := NewSelectNode(info("select", 1), src, testutil.Lambda(t, "o => o.id"))
	appendNode(t, c, sel, err)
	_, ctx := generate(t, c)

	first, err := sel.ResolvedSelector(c, ctx)
	require.NoError(t, err)
	second, err := sel.ResolvedSelector(c, ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGroupJoinNode_Apply(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	gj, err := NewGroupJoinNode(info("groupJoin", 1), src, customers,
		testutil.Lambda(t, "o => o.customerId"),
		testutil.Lambda(t, "c => c.id"),
		testutil.Lambda(t, "(o, cs) => {'order': o, 'matches': cs}"))
	id := appendNode(t, c, gj, err)

	assert.Equal(t, "(o, c) => null", expr.Format(gj.JoinNode().ResultSelector))

	ctx := NewContext("t")
	qm := c.Node(src).(*MainSourceNode).apply(ctx)
	before := len(qm.BodyClauses)

	qm, err = gj.Apply(qm, c, ctx)
	require.NoError(t, err)

	require.Len(t, qm.BodyClauses, before+1)
	clause := qm.BodyClauses[before].(*model.GroupJoinClause)
	assert.Equal(t, "join c in customers on [o].customerId equals [c].id into cs", clause.String())
	assert.Equal(t, "cs", clause.Name)
	assert.Equal(t, expr.SequenceOf("Customer"), clause.Type)

	assert.Equal(t, "new {order = [o], matches = [cs]}", expr.Format(qm.SelectClause.Selector))
	assert.Empty(t, expr.FreeParameters(qm.SelectClause.Selector))

	registered, ok := ctx.ClauseFor(id)
	require.True(t, ok)
	assert.Same(t, clause, registered)

	resolved, err := gj.ResolvedResultSelector(c, ctx)
	require.NoError(t, err)
	assert.Same(t, qm.SelectClause.Selector, resolved)
}

func TestGenerate_GroupJoinThenSelect(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	gj, err := NewGroupJoinNode(info("groupJoin", 1), src, customers,
		testutil.Lambda(t, "o => o.customerId"),
		testutil.Lambda(t, "c => c.id"),
		testutil.Lambda(t, "(o, cs) => {'order': o, 'matches': cs}"))
	id := appendNode(t, c, gj, err)
	sel, err := NewSelectNode(info("select", 2), id, testutil.Lambda(t, "g => g.matches"))
	appendNode(t, c, sel, err)

	qm, _ := generate(t, c)
	assert.Equal(t,
		"from o in orders join c in customers on [o].customerId equals [c].id into cs "+
			"select new {order = [o], matches = [cs]}.matches",
		qm.String())
	assert.Len(t, qm.BodyClauses, 1)
}

func TestGenerate_Join(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	join, err := NewJoinNode(info("join", 1), src, customers,
		testutil.Lambda(t, "o => o.customerId"),
		testutil.Lambda(t, "c => c.id"),
		testutil.Lambda(t, "(o, c) => {'id': o.id, 'name': c.name}"))
	id := appendNode(t, c, join, err)
	where, err := NewWhereNode(info("where", 2), id, testutil.Lambda(t, "r => r.name.startsWith('A')"))
	appendNode(t, c, where, err)

	qm, ctx := generate(t, c)
	assert.Equal(t,
		"from o in orders join c in customers on [o].customerId equals [c].id "+
			`where new {id = [o].id, name = [c].name}.name.startsWith("A") `+
			"select new {id = [o].id, name = [c].name}",
		qm.String())

	jc, ok := ctx.ClauseFor(id)
	require.True(t, ok)
	assert.Equal(t, expr.Type("Customer"), jc.(*model.JoinClause).Type)
}

func TestJoinNode_ResolveBeforeGeneration(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	join, err := NewJoinNode(info("join", 1), src, customers,
		testutil.Lambda(t, "o => o.customerId"),
		testutil.Lambda(t, "c => c.id"),
		testutil.Lambda(t, "(o, c) => c"))
	appendNode(t, c, join, err)

	_, err = join.ResolvedResultSelector(c, NewContext("t"))
	assert.True(t, IsResolutionError(err))
}

func TestChain_ResolveErrors(t *testing.T) {
	c := NewChain()
	orders(t, c)
	ctx := NewContext("t")
	p := expr.NewParameter("p", "")

	_, err := c.Resolve(7, p, p, ctx)
	assert.True(t, IsResolutionError(err))
	assert.ErrorContains(t, err, "no such node in chain")

	_, err = c.Resolve(0, p, p, ctx)
	assert.ErrorContains(t, err, "source clause has not been generated")

	_, err = c.Resolve(0, nil, p, ctx)
	assert.True(t, IsResolutionError(err))
}

func TestGenerate_OrderByThenBy(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	ob, err := NewOrderByNode(info("orderByDescending", 1), src, testutil.Lambda(t, "o => o.total"), model.Descending, false)
	id := appendNode(t, c, ob, err)
	tb, err := NewOrderByNode(info("thenBy", 2), id, testutil.Lambda(t, "o => o.id"), "", true)
	appendNode(t, c, tb, err)

	qm, _ := generate(t, c)
	assert.Equal(t, "from o in orders orderby [o].total desc, [o].id asc select [o]", qm.String())
	assert.Len(t, qm.BodyClauses, 1)
}

func TestGenerate_ResultOperators(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, c *Chain, src ID)
		want  string
	}{
		{"count with predicate", func(t *testing.T, c *Chain, src ID) {
			n, err := NewCountNode(info("count", 1), src, testutil.Lambda(t, "o => o.total > 100"))
			appendNode(t, c, n, err)
		}, "from o in orders where ([o].total > 100) select [o] => Count()"},
		{"all keeps predicate", func(t *testing.T, c *Chain, src ID) {
			n, err := NewAllNode(info("all", 1), src, testutil.Lambda(t, "o => o.total > 100"))
			appendNode(t, c, n, err)
		}, "from o in orders select [o] => All(([o].total > 100))"},
		{"stacked operators", func(t *testing.T, c *Chain, src ID) {
			d, err := NewDistinctNode(info("distinct", 1), src)
			id := appendNode(t, c, d, err)
			s, err := NewSkipNode(info("skip", 2), id, 1)
			id = appendNode(t, c, s, err)
			tk, err := NewTakeNode(info("take", 3), id, 2)
			id = appendNode(t, c, tk, err)
			f, err := NewFirstNode(info("firstOrDefault", 4), id, nil, true)
			appendNode(t, c, f, err)
		}, "from o in orders select [o] => Distinct() => Skip(1) => Take(2) => FirstOrDefault()"},
		{"where after take wraps", func(t *testing.T, c *Chain, src ID) {
			tk, err := NewTakeNode(info("take", 1), src, 2)
			id := appendNode(t, c, tk, err)
			w, err := NewWhereNode(info("where", 2), id, testutil.Lambda(t, "o => o.total > 5"))
			appendNode(t, c, w, err)
		}, "from q0 in {from o in orders select [o] => Take(2)} where ([q0].total > 5) select [q0]"},
		{"filtered any after distinct wraps", func(t *testing.T, c *Chain, src ID) {
			d, err := NewDistinctNode(info("distinct", 1), src)
			id := appendNode(t, c, d, err)
			a, err := NewAnyNode(info("any", 2), id, testutil.Lambda(t, "o => o.paid"))
			appendNode(t, c, a, err)
		}, "from q0 in {from o in orders select [o] => Distinct()} where [q0].paid select [q0] => Any()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChain()
			tt.build(t, c, orders(t, c))
			qm, _ := generate(t, c)
			assert.Equal(t, tt.want, qm.String())
		})
	}
}

func TestGenerate_WrappedSourceIsRecorded(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	tk, err := NewTakeNode(info("take", 1), src, 2)
	id := appendNode(t, c, tk, err)
	sel, err := NewSelectNode(info("select", 2), id, testutil.Lambda(t, "o => o.id"))
	appendNode(t, c, sel, err)

	qm, ctx := generate(t, c)
	ref, ok := ctx.Wrapped(id)
	require.True(t, ok)
	assert.Same(t, qm.MainFromClause, ref.(*expr.QuerySourceRef).Source)
	assert.Equal(t, "from q0 in {from o in orders select [o] => Take(2)} select [q0].id", qm.String())

	inner := qm.MainFromClause.FromExpression.(*expr.SubQuery).Query.(*model.QueryModel)
	assert.Equal(t, expr.SequenceOf("Order"), inner.ResultType())
	assert.Equal(t, expr.Type("Order"), qm.MainFromClause.Type)
}

func TestGenerate_UsesInjectedLogger(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	tk, err := NewTakeNode(info("take", 1), src, 2)
	id := appendNode(t, c, tk, err)
	sel, err := NewSelectNode(info("select", 2), id, testutil.Lambda(t, "o => o.id"))
	appendNode(t, c, sel, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, _, err = Generate(c,
		WithTokenGenerator(testutil.NewFixedTokenGenerator("pass-log")),
		WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "query wrapped into subquery")
	assert.Contains(t, out, "query model generated")
	assert.Contains(t, out, "token=pass-log")
}

func TestGenerate_ShapeErrors(t *testing.T) {
	t.Run("result after scalar", func(t *testing.T) {
		c := NewChain()
		src := orders(t, c)
		n, err := NewCountNode(info("count", 1), src, nil)
		id := appendNode(t, c, n, err)
		n2, err := NewCountNode(info("count", 2), id, nil)
		appendNode(t, c, n2, err)

		_, _, err = Generate(c)
		var shapeErr *model.ShapeError
		require.True(t, errors.As(err, &shapeErr), "got %v", err)
		assert.Equal(t, model.KindScalar, shapeErr.Actual)
		assert.ErrorContains(t, err, "count (call 2)")
	})

	t.Run("body clause after single", func(t *testing.T) {
		c := NewChain()
		src := orders(t, c)
		n, err := NewFirstNode(info("first", 1), src, nil, false)
		id := appendNode(t, c, n, err)
		w, err := NewWhereNode(info("where", 2), id, testutil.Lambda(t, "o => o.paid"))
		appendNode(t, c, w, err)

		_, _, err = Generate(c)
		var shapeErr *model.ShapeError
		require.True(t, errors.As(err, &shapeErr), "got %v", err)
		assert.Equal(t, model.KindSingle, shapeErr.Actual)
		assert.Equal(t, "where", shapeErr.Operator)
	})
}

func TestGenerate_ChainIsSingleUse(t *testing.T) {
	c := NewChain()
	orders(t, c)
	generate(t, c)

	_, _, err := Generate(c)
	assert.ErrorIs(t, err, ErrChainReused)

	_, _, err = Generate(NewChain())
	assert.ErrorIs(t, err, ErrEmptyChain)
}

func TestGenerate_DefaultTokenIsUUIDv7(t *testing.T) {
	c := NewChain()
	orders(t, c)
	_, ctx, err := Generate(c)
	require.NoError(t, err)
	assert.Len(t, ctx.Token, 36)
}

func TestGenerate_ResultOperatorTypes(t *testing.T) {
	c := NewChain()
	src := orders(t, c)
	n, err := NewAllNode(info("all", 1), src, testutil.Lambda(t, "o => o.total > 100"))
	appendNode(t, c, n, err)

	qm, _ := generate(t, c)
	require.Len(t, qm.ResultOperators, 1)
	all, ok := qm.ResultOperators[0].(*resultop.All)
	require.True(t, ok)
	assert.Empty(t, expr.FreeParameters(all.Predicate))
	assert.Equal(t, expr.TypeBool, qm.ResultType())
}
