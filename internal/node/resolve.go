package node

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// ResolvedSelector returns the selector resolved against the node's
// source. It is computed once.
func (n *SelectNode) ResolvedSelector(c *Chain, ctx *Context) (expr.Expr, error) {
	return n.resolved.get(func() (expr.Expr, error) {
		return c.Resolve(n.source, n.Selector.Params[0], n.Selector.Body, ctx)
	})
}

// ResolvedResultSelector returns the result selector with its inner
// parameter bound to the node's join clause and its outer parameter
// resolved against the node's source. It is computed once, after the join
// clause has been generated.
func (n *JoinNode) ResolvedResultSelector(c *Chain, ctx *Context) (expr.Expr, error) {
	return n.resolved.get(func() (expr.Expr, error) {
		jc, ok := ctx.ClauseFor(n.id)
		if !ok {
			return nil, &ResolutionError{Node: n.id, Method: n.info.Method, Message: "join clause has not been generated"}
		}
		body := expr.Replace(n.ResultSelector.Params[1], expr.Ref(jc.(expr.QuerySource)), n.ResultSelector.Body)
		return c.Resolve(n.source, n.ResultSelector.Params[0], body, ctx)
	})
}

// CreateJoinClause builds the join clause for the node. The outer key is
// resolved against the node's source; the inner key refers to the new
// clause. The clause is named and typed after the result selector's inner
// parameter.
func (n *JoinNode) CreateJoinClause(c *Chain, ctx *Context) (*model.JoinClause, error) {
	inner := n.ResultSelector.Params[1]
	itemType := inner.Type
	if itemType == expr.TypeAny {
		itemType = expr.ElementOf(expr.TypeOf(n.InnerSequence))
	}
	outerKey, err := c.Resolve(n.source, n.OuterKeySelector.Params[0], n.OuterKeySelector.Body, ctx)
	if err != nil {
		return nil, fmt.Errorf("outer key of %s: %w", n.info, err)
	}
	jc := model.NewJoinClause(inner.Name, itemType, n.InnerSequence, outerKey, nil)
	jc.InnerKeySelector = expr.Replace(n.InnerKeySelector.Params[0], expr.Ref(jc), n.InnerKeySelector.Body)
	return jc, nil
}

// ResolvedResultSelector returns the result selector with its second
// parameter bound to the group join clause (the matching inner items) and
// its first parameter resolved against the node's source. It is computed
// once, after the group join clause has been generated.
func (n *GroupJoinNode) ResolvedResultSelector(c *Chain, ctx *Context) (expr.Expr, error) {
	return n.resolved.get(func() (expr.Expr, error) {
		gj, ok := ctx.ClauseFor(n.id)
		if !ok {
			return nil, &ResolutionError{Node: n.id, Method: n.info.Method, Message: "group join clause has not been generated"}
		}
		body := expr.Replace(n.ResultSelector.Params[1], expr.Ref(gj.(expr.QuerySource)), n.ResultSelector.Body)
		return c.Resolve(n.source, n.ResultSelector.Params[0], body, ctx)
	})
}

// Apply adds the node's group join clause to qm, registers it in ctx and
// replaces the projection with the resolved result selector.
func (n *GroupJoinNode) Apply(qm *model.QueryModel, c *Chain, ctx *Context) (*model.QueryModel, error) {
	jc, err := n.join.CreateJoinClause(c, ctx)
	if err != nil {
		return nil, err
	}
	matches := n.ResultSelector.Params[1]
	itemType := matches.Type
	if itemType == expr.TypeAny {
		itemType = expr.SequenceOf(jc.Type)
	}
	gj := model.NewGroupJoinClause(matches.Name, itemType, jc)
	ctx.AddContextInfo(n.id, gj)
	qm.AddBodyClause(gj)

	sel, err := n.ResolvedResultSelector(c, ctx)
	if err != nil {
		return nil, err
	}
	qm.SetSelector(sel)
	return qm, nil
}

// Apply adds the node's join clause to qm, registers it in ctx and
// replaces the projection with the resolved result selector.
func (n *JoinNode) Apply(qm *model.QueryModel, c *Chain, ctx *Context) (*model.QueryModel, error) {
	jc, err := n.CreateJoinClause(c, ctx)
	if err != nil {
		return nil, err
	}
	ctx.AddContextInfo(n.id, jc)
	qm.AddBodyClause(jc)

	sel, err := n.ResolvedResultSelector(c, ctx)
	if err != nil {
		return nil, err
	}
	qm.SetSelector(sel)
	return qm, nil
}
