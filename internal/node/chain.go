package node

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
)

// Chain is an arena of nodes addressed by ID. Node i consumes node i-1;
// node 0 is the only node without a source and must be a MainSourceNode.
type Chain struct {
	nodes     []Node
	generated bool
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Append adds n as the new last node and returns its ID.
func (c *Chain) Append(n Node) (ID, error) {
	if n == nil {
		return NoSource, &ArgumentError{Param: "node", Message: "must not be nil"}
	}
	b := n.base()
	if b.appended {
		return NoSource, &ArgumentError{Param: "node", Message: fmt.Sprintf("%s is already part of a chain", b.info)}
	}
	id := ID(len(c.nodes))
	if id == 0 {
		if _, ok := n.(*MainSourceNode); !ok {
			return NoSource, &ArgumentError{Param: "node", Message: fmt.Sprintf("chain must start with a source, got %s", b.info.Method)}
		}
	} else if b.source != id-1 {
		return NoSource, &ArgumentError{
			Param:   "source",
			Message: fmt.Sprintf("%s must consume node %d, got %d", b.info, id-1, b.source),
		}
	}
	if ob, ok := n.(*OrderByNode); ok && ob.ThenBy {
		if _, ok := c.nodes[id-1].(*OrderByNode); !ok {
			return NoSource, &ArgumentError{Param: "source", Message: fmt.Sprintf("%s must follow orderBy or thenBy", b.info)}
		}
	}
	b.id, b.appended = id, true
	c.nodes = append(c.nodes, n)
	return id, nil
}

// Len returns the number of nodes.
func (c *Chain) Len() int { return len(c.nodes) }

// Node returns the node with the given ID, or nil.
func (c *Chain) Node(id ID) Node {
	if id < 0 || int(id) >= len(c.nodes) {
		return nil
	}
	return c.nodes[id]
}

// Last returns the ID of the terminal node, or NoSource for an empty chain.
func (c *Chain) Last() ID {
	return ID(len(c.nodes) - 1)
}

// Resolve substitutes param, which stands for the current output item of
// node id, in e. The result references query sources only: the substitute
// is the node's own query source, or for nodes that reshape the stream,
// their resolved selector.
func (c *Chain) Resolve(id ID, param *expr.Parameter, e expr.Expr, ctx *Context) (expr.Expr, error) {
	if param == nil || e == nil || ctx == nil {
		return nil, &ResolutionError{Node: id, Message: "parameter, expression and context are required"}
	}
	item, err := c.output(id, ctx)
	if err != nil {
		return nil, err
	}
	return expr.Replace(param, item, e), nil
}

// output returns the resolved expression for the current output item of
// node id.
func (c *Chain) output(id ID, ctx *Context) (expr.Expr, error) {
	n := c.Node(id)
	if n == nil {
		return nil, &ResolutionError{Node: id, Message: "no such node in chain"}
	}
	if ref, ok := ctx.wrapped[id]; ok {
		return ref, nil
	}
	switch n := n.(type) {
	case *MainSourceNode:
		src, ok := ctx.querySource(id)
		if !ok {
			return nil, &ResolutionError{Node: id, Method: n.info.Method, Message: "source clause has not been generated"}
		}
		return expr.Ref(src), nil
	case *WhereNode, *OrderByNode, *ResultNode:
		return c.output(n.SourceID(), ctx)
	case *SelectNode:
		return n.ResolvedSelector(c, ctx)
	case *JoinNode:
		return n.ResolvedResultSelector(c, ctx)
	case *GroupJoinNode:
		return n.ResolvedResultSelector(c, ctx)
	default:
		return nil, &ResolutionError{Node: id, Message: fmt.Sprintf("unknown node type %T", n)}
	}
}
