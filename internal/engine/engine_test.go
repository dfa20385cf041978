package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/node"
	"github.com/roach88/pipeq/internal/querysql"
	"github.com/roach88/pipeq/internal/resultop"
	"github.com/roach88/pipeq/internal/store"
	"github.com/roach88/pipeq/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, store.Table{
		Name: "orders",
		Rows: []map[string]any{
			{"id": 1, "customerId": "c1", "total": 120.5},
			{"id": 2, "customerId": "c2", "total": 80},
			{"id": 3, "customerId": "c1", "total": 300},
		},
	}))
	require.NoError(t, s.CreateTable(ctx, store.Table{
		Name: "customers",
		Rows: []map[string]any{
			{"id": "c1", "name": "Ada"},
			{"id": "c2", "name": "Bob"},
		},
	}))
	return s
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{
		WithTokenGenerator(testutil.NewFixedTokenGenerator("pass-1")),
		WithLogger(testutil.DiscardLogger()),
	}, opts...)
	return New(setupTestStore(t), opts...)
}

// chainBuilder appends nodes to a chain over the orders table.
type chainBuilder struct {
	t     *testing.T
	chain *node.Chain
	last  node.ID
}

func fromOrders(t *testing.T) *chainBuilder {
	t.Helper()
	b := &chainBuilder{t: t, chain: node.NewChain()}
	return b.add(node.NewMainSourceNode(b.info("from"), "o", "Order", expr.NewTableRef("orders", "Order")))
}

func (b *chainBuilder) info(method string) node.ParseInfo {
	return node.ParseInfo{Method: method, Position: b.chain.Len()}
}

func (b *chainBuilder) add(n node.Node, err error) *chainBuilder {
	b.t.Helper()
	require.NoError(b.t, err)
	id, err := b.chain.Append(n)
	require.NoError(b.t, err)
	b.last = id
	return b
}

func (b *chainBuilder) lambda(text string) *expr.Lambda {
	return testutil.Lambda(b.t, text)
}

func (b *chainBuilder) where(text string) *chainBuilder {
	return b.add(node.NewWhereNode(b.info("where"), b.last, b.lambda(text)))
}

func (b *chainBuilder) sel(text string) *chainBuilder {
	return b.add(node.NewSelectNode(b.info("select"), b.last, b.lambda(text)))
}

func (b *chainBuilder) orderBy(text string, dir model.Direction) *chainBuilder {
	return b.add(node.NewOrderByNode(b.info("orderBy"), b.last, b.lambda(text), dir, false))
}

func run(t *testing.T, e *Engine, b *chainBuilder) *Result {
	t.Helper()
	res, err := e.Run(context.Background(), b.chain)
	require.NoError(t, err)
	return res
}

func TestEngine_WhereSelect(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).where("o => o.total > 100").orderBy("o => o.id", model.Ascending).sel("o => {'id': o.id}")

	res := run(t, e, b)
	assert.Equal(t, []any{
		map[string]any{"id": int64(1)},
		map[string]any{"id": int64(3)},
	}, res.Value)
	assert.Equal(t, "pass-1", res.Token)
	assert.Equal(t, "from o in orders where ([o].total > 100) orderby [o].id asc select new {id = [o].id}", res.Model)
}

func TestEngine_Terminals(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *chainBuilder) *chainBuilder
		want  any
	}{
		{
			name: "count with predicate",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewCountNode(b.info("count"), b.last, b.lambda("o => o.customerId == 'c1'")))
			},
			want: int64(2),
		},
		{
			name: "any false",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewAnyNode(b.info("any"), b.last, b.lambda("o => o.total > 1000")))
			},
			want: false,
		},
		{
			name: "any true",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewAnyNode(b.info("any"), b.last, nil))
			},
			want: true,
		},
		{
			name: "all true",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewAllNode(b.info("all"), b.last, b.lambda("o => o.total > 50")))
			},
			want: true,
		},
		{
			name: "all false",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewAllNode(b.info("all"), b.last, b.lambda("o => o.total > 100")))
			},
			want: false,
		},
		{
			name: "first after order",
			build: func(b *chainBuilder) *chainBuilder {
				b.orderBy("o => o.total", model.Descending).sel("o => o.id")
				return b.add(node.NewFirstNode(b.info("first"), b.last, nil, false))
			},
			want: int64(3),
		},
		{
			name: "first or default on empty",
			build: func(b *chainBuilder) *chainBuilder {
				return b.add(node.NewFirstNode(b.info("firstOrDefault"), b.last, b.lambda("o => o.total > 1000"), true))
			},
			want: nil,
		},
		{
			name: "distinct count",
			build: func(b *chainBuilder) *chainBuilder {
				b.sel("o => o.customerId")
				b.add(node.NewDistinctNode(b.info("distinct"), b.last))
				return b.add(node.NewCountNode(b.info("count"), b.last, nil))
			},
			want: int64(2),
		},
		{
			name: "skip",
			build: func(b *chainBuilder) *chainBuilder {
				b.orderBy("o => o.id", model.Ascending).sel("o => o.id")
				return b.add(node.NewSkipNode(b.info("skip"), b.last, 1))
			},
			want: []any{int64(2), int64(3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			res := run(t, e, tt.build(fromOrders(t)))
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestEngine_ResidualAllAfterTake(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).orderBy("o => o.total", model.Descending)
	b.add(node.NewTakeNode(b.info("take"), b.last, 2))
	b.add(node.NewAllNode(b.info("all"), b.last, b.lambda("o => o.total > 100")))

	res := run(t, e, b)
	assert.Equal(t, true, res.Value)
	assert.Equal(t, querysql.TerminalNone, res.Statement.Terminal)
	require.Len(t, res.Statement.Residual, 1)
}

func TestEngine_AllWithNullPredicate(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.store.CreateTable(context.Background(), store.Table{
		Name: "items",
		Rows: []map[string]any{{"v": 3}, {"v": nil}},
	}))
	b := &chainBuilder{t: t, chain: node.NewChain()}
	b.add(node.NewMainSourceNode(b.info("from"), "o", "Item", expr.NewTableRef("items", "Item")))
	b.add(node.NewAllNode(b.info("all"), b.last, b.lambda("o => o.v > 2")))

	res := run(t, e, b)
	assert.Equal(t, querysql.TerminalAll, res.Statement.Terminal)
	assert.Equal(t, false, res.Value)
}

func TestEngine_NestedNegation(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).where("o => -(-o.total) > 100").orderBy("o => o.id", model.Ascending).sel("o => o.id")

	res := run(t, e, b)
	assert.Equal(t, []any{int64(1), int64(3)}, res.Value)
}

func TestEngine_ResidualThroughProjection(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).orderBy("o => o.id", model.Ascending).sel("o => {'amount': o.total}")
	b.add(node.NewTakeNode(b.info("take"), b.last, 2))
	b.add(node.NewAllNode(b.info("all"), b.last, b.lambda("x => x.amount > 100")))

	res := run(t, e, b)
	assert.Equal(t, false, res.Value)
}

func TestEngine_NotLocallyEvaluable(t *testing.T) {
	e := newTestEngine(t)
	from := model.NewMainFromClause("o", "Order", expr.NewTableRef("orders", "Order"))
	qm := model.New(from, model.NewSelectClause(expr.NewMember(expr.Ref(from), "id")))
	qm.AddResultOperator(&resultop.Take{Count: 2})
	qm.AddResultOperator(resultop.NewAll(expr.NewBinary(expr.OpGreater,
		expr.NewMember(expr.Ref(from), "total"), expr.NewConstant(int64(100)))))

	_, err := e.Execute(context.Background(), "tok", qm)
	require.Error(t, err)
	assert.ErrorIs(t, err, resultop.ErrNotLocallyEvaluable)
	assert.Equal(t, ErrCodeInMemory, ErrorCode(err))

	var nle *resultop.NotLocallyEvaluableError
	require.True(t, errors.As(err, &nle))
	assert.Equal(t, "All(([o].total > 100))", nle.Operator)
}

func TestEngine_Join(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).orderBy("o => o.id", model.Ascending)
	b.add(node.NewJoinNode(b.info("join"), b.last,
		expr.NewTableRef("customers", "Customer"),
		b.lambda("o => o.customerId"),
		b.lambda("c => c.id"),
		b.lambda("(o, c) => {'order': o.id, 'name': c.name}")))

	res := run(t, e, b)
	assert.Equal(t, []any{
		map[string]any{"order": int64(1), "name": "Ada"},
		map[string]any{"order": int64(2), "name": "Bob"},
		map[string]any{"order": int64(3), "name": "Ada"},
	}, res.Value)
}

func TestEngine_FilterAfterTakeUsesSubquery(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t).orderBy("o => o.id", model.Ascending)
	b.add(node.NewTakeNode(b.info("take"), b.last, 2))
	b.where("x => x.total > 100").sel("x => x.id")

	res := run(t, e, b)
	assert.Equal(t, []any{int64(1)}, res.Value)
	assert.Contains(t, res.Model, "from q0 in {")
}

func TestEngine_FirstOnEmptyFails(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t)
	b.add(node.NewFirstNode(b.info("first"), b.last, b.lambda("o => o.total > 1000"), false))

	_, err := e.Run(context.Background(), b.chain)
	require.Error(t, err)
	assert.ErrorIs(t, err, resultop.ErrEmptySequence)
}

func TestEngine_RowQuota(t *testing.T) {
	e := newTestEngine(t, WithMaxRows(2))
	_, err := e.Run(context.Background(), fromOrders(t).chain)
	require.Error(t, err)
	assert.True(t, IsRowLimitError(err))
	assert.True(t, IsRowsExceededError(err))

	e = newTestEngine(t, WithMaxRows(0))
	res := run(t, e, fromOrders(t))
	assert.Len(t, res.Value, 3)
}

func TestEngine_CompileError(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t)
	b.add(node.NewGroupJoinNode(b.info("groupJoin"), b.last,
		expr.NewTableRef("customers", "Customer"),
		b.lambda("o => o.customerId"),
		b.lambda("c => c.id"),
		b.lambda("(o, cs) => {'id': o.id, 'matches': cs}")))

	_, err := e.Run(context.Background(), b.chain)
	require.Error(t, err)
	assert.Equal(t, ErrCodeCompile, ErrorCode(err))
	assert.ErrorIs(t, err, querysql.ErrUnsupported)
}

func TestEngine_GenerateError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Run(context.Background(), node.NewChain())
	require.Error(t, err)
	assert.Equal(t, ErrCodeGenerate, ErrorCode(err))
	assert.ErrorIs(t, err, node.ErrEmptyChain)
}

func TestEngine_LogsQueries(t *testing.T) {
	e := newTestEngine(t)
	b := fromOrders(t)
	b.add(node.NewCountNode(b.info("count"), b.last, nil))
	res := run(t, e, b)

	records, err := e.store.ReadQueryLog(context.Background(), "pass-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.Seq, records[0].Seq)
	assert.Equal(t, "count", records[0].Terminal)
	assert.Equal(t, res.Statement.SQL, records[0].Statement)
	assert.Equal(t, 1, records[0].RowCount)
}
