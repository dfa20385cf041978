package model

import "github.com/roach88/pipeq/internal/expr"

// QuerySourceMapping maps query sources to the expressions that replace
// references to them, typically references to cloned clauses.
type QuerySourceMapping struct {
	m map[expr.QuerySource]expr.Expr
}

// NewQuerySourceMapping creates an empty mapping.
func NewQuerySourceMapping() *QuerySourceMapping {
	return &QuerySourceMapping{m: make(map[expr.QuerySource]expr.Expr)}
}

// Add maps src to replacement, overwriting any earlier mapping.
func (m *QuerySourceMapping) Add(src expr.QuerySource, replacement expr.Expr) {
	m.m[src] = replacement
}

// Lookup returns the replacement for src.
func (m *QuerySourceMapping) Lookup(src expr.QuerySource) (expr.Expr, bool) {
	r, ok := m.m[src]
	return r, ok
}

// Contains reports whether src is mapped.
func (m *QuerySourceMapping) Contains(src expr.QuerySource) bool {
	_, ok := m.m[src]
	return ok
}

// Len returns the number of mapped sources.
func (m *QuerySourceMapping) Len() int {
	return len(m.m)
}

// CloneContext carries the mapping from original to cloned query sources
// while a query model, clause or result operator is cloned.
type CloneContext struct {
	Mapping *QuerySourceMapping
}

// NewCloneContext creates a clone context over mapping.
func NewCloneContext(mapping *QuerySourceMapping) *CloneContext {
	if mapping == nil {
		mapping = NewQuerySourceMapping()
	}
	return &CloneContext{Mapping: mapping}
}

// Rewrite replaces mapped query-source references in e and clones nested
// query models. Expressions without either keep their identity.
func (c *CloneContext) Rewrite(e expr.Expr) expr.Expr {
	return expr.Transform(e, func(n expr.Expr) expr.Expr {
		switch n := n.(type) {
		case *expr.QuerySourceRef:
			if r, ok := c.Mapping.Lookup(n.Source); ok {
				return r
			}
		case *expr.SubQuery:
			if qm, ok := n.Query.(*QueryModel); ok {
				return expr.NewSubQuery(qm.CloneWith(c))
			}
		}
		return n
	})
}
