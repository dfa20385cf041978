package node

import (
	"fmt"
	"log/slog"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/resultop"
)

// Option configures Generate.
type Option func(*generateOptions)

type generateOptions struct {
	tokens TokenGenerator
	logger *slog.Logger
}

// WithTokenGenerator sets the generator of the pass token.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(o *generateOptions) {
		o.tokens = g
	}
}

// WithLogger sets the logger for generation debug output.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *generateOptions) {
		o.logger = l
	}
}

// Generate builds the query model for chain.
//
// Nodes are applied in call order starting from the source; each one
// appends its clauses and may replace the projection. A node other than a
// result operator that consumes a result node wraps the query built so far
// into a subquery, which becomes the main source of a fresh model.
//
// A chain can only be generated once.
func Generate(chain *Chain, opts ...Option) (*model.QueryModel, *Context, error) {
	o := generateOptions{tokens: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if chain.Len() == 0 {
		return nil, nil, ErrEmptyChain
	}
	if chain.generated {
		return nil, nil, ErrChainReused
	}
	chain.generated = true

	ctx := NewContext(o.tokens.Generate())
	var qm *model.QueryModel
	for i, n := range chain.nodes {
		id := ID(i)
		var err error
		if id > 0 {
			qm, err = wrapAfterResult(qm, chain, ctx, n, o.logger)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", n.Info(), err)
			}
		}

		switch n := n.(type) {
		case *MainSourceNode:
			qm = n.apply(ctx)
		case *WhereNode:
			err = n.apply(qm, chain, ctx)
		case *SelectNode:
			err = n.apply(qm, chain, ctx)
		case *OrderByNode:
			err = n.apply(qm, chain, ctx)
		case *JoinNode:
			qm, err = n.Apply(qm, chain, ctx)
		case *GroupJoinNode:
			qm, err = n.Apply(qm, chain, ctx)
		case *ResultNode:
			err = n.apply(qm, chain, ctx)
		default:
			err = fmt.Errorf("unknown node type %T", n)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", n.Info(), err)
		}

		o.logger.Debug("node applied",
			"token", ctx.Token,
			"node", id,
			"method", n.Info().Method,
			"body_clauses", len(qm.BodyClauses),
			"result_operators", len(qm.ResultOperators),
		)
	}

	o.logger.Debug("query model generated", "token", ctx.Token, "model", qm.String())
	return qm, ctx, nil
}

// wrapAfterResult wraps qm into a subquery when n continues a query that
// already ends in a result operator. Result operators without a filter
// stack onto the existing model instead.
func wrapAfterResult(qm *model.QueryModel, chain *Chain, ctx *Context, n Node, logger *slog.Logger) (*model.QueryModel, error) {
	src, ok := chain.Node(n.SourceID()).(*ResultNode)
	if !ok {
		return qm, nil
	}
	if r, ok := n.(*ResultNode); ok && !r.filters() {
		return qm, nil
	}
	info, err := qm.OutputDataInfo()
	if err != nil {
		return nil, err
	}
	seq, err := model.RequireSequence(n.Info().Method, info)
	if err != nil {
		return nil, err
	}

	from := model.NewMainFromClause(qm.NewName("q"), seq.ItemType, expr.NewSubQuery(qm))
	ctx.wrapped[src.id] = expr.Ref(from)

	logger.Debug("query wrapped into subquery", "token", ctx.Token, "after_node", src.id, "source", from.Name)
	return model.New(from, model.NewSelectClause(expr.Ref(from))), nil
}

func (n *MainSourceNode) apply(ctx *Context) *model.QueryModel {
	from := model.NewMainFromClause(n.ItemName, n.ItemType, n.Expression)
	ctx.AddContextInfo(n.id, from)
	return model.New(from, model.NewSelectClause(expr.Ref(from)))
}

func (n *WhereNode) apply(qm *model.QueryModel, c *Chain, ctx *Context) error {
	pred, err := c.Resolve(n.source, n.Predicate.Params[0], n.Predicate.Body, ctx)
	if err != nil {
		return err
	}
	wc := model.NewWhereClause(pred)
	qm.AddBodyClause(wc)
	ctx.AddContextInfo(n.id, wc)
	return nil
}

func (n *SelectNode) apply(qm *model.QueryModel, c *Chain, ctx *Context) error {
	sel, err := n.ResolvedSelector(c, ctx)
	if err != nil {
		return err
	}
	qm.SetSelector(sel)
	return nil
}

func (n *OrderByNode) apply(qm *model.QueryModel, c *Chain, ctx *Context) error {
	key, err := c.Resolve(n.source, n.KeySelector.Params[0], n.KeySelector.Body, ctx)
	if err != nil {
		return err
	}
	ordering := model.Ordering{Expression: key, Direction: n.Direction}

	if !n.ThenBy {
		ob := model.NewOrderByClause(ordering)
		qm.AddBodyClause(ob)
		ctx.AddContextInfo(n.id, ob)
		return nil
	}
	ob, ok := qm.LastBodyClause().(*model.OrderByClause)
	if !ok {
		return &ResolutionError{Node: n.id, Method: n.info.Method, Message: "no order by clause to extend"}
	}
	ob.Orderings = append(ob.Orderings, ordering)
	ctx.clauses[n.id] = ob
	return nil
}

func (n *ResultNode) apply(qm *model.QueryModel, c *Chain, ctx *Context) error {
	if n.filters() {
		pred, err := c.Resolve(n.source, n.Predicate.Params[0], n.Predicate.Body, ctx)
		if err != nil {
			return err
		}
		wc := model.NewWhereClause(pred)
		qm.AddBodyClause(wc)
		ctx.AddContextInfo(n.id, wc)
	}

	op, err := n.resultOperator(c, ctx)
	if err != nil {
		return err
	}
	in, err := qm.OutputDataInfo()
	if err != nil {
		return err
	}
	if _, err := op.OutputDataInfo(in); err != nil {
		return err
	}
	qm.AddResultOperator(op)
	return nil
}

func (n *ResultNode) resultOperator(c *Chain, ctx *Context) (model.ResultOperator, error) {
	switch n.Kind {
	case ResultAll:
		pred, err := c.Resolve(n.source, n.Predicate.Params[0], n.Predicate.Body, ctx)
		if err != nil {
			return nil, err
		}
		return resultop.NewAll(pred), nil
	case ResultAny:
		return &resultop.Any{}, nil
	case ResultCount:
		return &resultop.Count{}, nil
	case ResultDistinct:
		return &resultop.Distinct{}, nil
	case ResultFirst:
		return &resultop.First{}, nil
	case ResultFirstOrDefault:
		return &resultop.First{OrDefault: true}, nil
	case ResultTake:
		return &resultop.Take{Count: n.Count}, nil
	case ResultSkip:
		return &resultop.Skip{Count: n.Count}, nil
	default:
		return nil, fmt.Errorf("unknown result kind %q", n.Kind)
	}
}
