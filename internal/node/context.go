package node

import (
	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// Context is the generation context of one pass: which clause each node
// produced, and where the model was wrapped into a subquery.
//
// It is owned by the pass. Callers may keep it afterwards to correlate
// clauses with the calls that produced them.
type Context struct {
	// Token identifies the generation pass in logs.
	Token string

	clauses map[ID]model.Clause
	nodes   map[model.Clause]ID
	// wrapped maps a result node to a reference to the main from clause of
	// the model that wraps the query ending in that node.
	wrapped map[ID]expr.Expr
}

// NewContext creates an empty generation context.
func NewContext(token string) *Context {
	return &Context{
		Token:   token,
		clauses: make(map[ID]model.Clause),
		nodes:   make(map[model.Clause]ID),
		wrapped: make(map[ID]expr.Expr),
	}
}

// AddContextInfo records that node id produced clause.
func (c *Context) AddContextInfo(id ID, clause model.Clause) {
	c.clauses[id] = clause
	c.nodes[clause] = id
}

// ClauseFor returns the clause node id produced.
func (c *Context) ClauseFor(id ID) (model.Clause, bool) {
	cl, ok := c.clauses[id]
	return cl, ok
}

// NodeFor returns the node that produced clause.
func (c *Context) NodeFor(clause model.Clause) (ID, bool) {
	id, ok := c.nodes[clause]
	return id, ok
}

// Count returns the number of recorded node-clause associations.
func (c *Context) Count() int {
	return len(c.clauses)
}

// Wrapped returns the reference that replaced the output of node id when
// the query ending there was wrapped into a subquery.
func (c *Context) Wrapped(id ID) (expr.Expr, bool) {
	e, ok := c.wrapped[id]
	return e, ok
}

func (c *Context) querySource(id ID) (expr.QuerySource, bool) {
	src, ok := c.clauses[id].(expr.QuerySource)
	return src, ok
}
