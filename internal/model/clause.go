package model

import (
	"fmt"
	"strings"

	"github.com/roach88/pipeq/internal/expr"
)

// Clause is a clause of a query model.
//
// This is a sealed interface - only types in this package implement it.
type Clause interface {
	String() string
	// TransformExpressions replaces every expression owned by the clause
	// with fn(expression).
	TransformExpressions(fn func(expr.Expr) expr.Expr)
	clauseNode()
}

// BodyClause is a clause between the main from clause and the select
// clause: where, join, group join, order by.
type BodyClause interface {
	Clause
	CloneBody(ctx *CloneContext) BodyClause
}

// MainFromClause introduces the items of the originating data source.
type MainFromClause struct {
	Name           string
	Type           expr.Type
	FromExpression expr.Expr
}

func (*MainFromClause) clauseNode() {}

// NewMainFromClause creates the clause that starts a query model.
func NewMainFromClause(name string, itemType expr.Type, from expr.Expr) *MainFromClause {
	return &MainFromClause{Name: name, Type: itemType.OrAny(), FromExpression: from}
}

// ItemName implements expr.QuerySource.
func (c *MainFromClause) ItemName() string { return c.Name }

// ItemType implements expr.QuerySource.
func (c *MainFromClause) ItemType() expr.Type { return c.Type }

func (c *MainFromClause) String() string {
	return fmt.Sprintf("from %s in %s", c.Name, expr.Format(c.FromExpression))
}

// TransformExpressions implements Clause.
func (c *MainFromClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.FromExpression = fn(c.FromExpression)
}

// Clone copies the clause and maps it to the copy in ctx.
func (c *MainFromClause) Clone(ctx *CloneContext) *MainFromClause {
	out := &MainFromClause{Name: c.Name, Type: c.Type, FromExpression: ctx.Rewrite(c.FromExpression)}
	ctx.Mapping.Add(c, expr.Ref(out))
	return out
}

// WhereClause filters items by a predicate.
type WhereClause struct {
	Predicate expr.Expr
}

func (*WhereClause) clauseNode() {}

// NewWhereClause creates a where clause.
func NewWhereClause(predicate expr.Expr) *WhereClause {
	return &WhereClause{Predicate: predicate}
}

func (c *WhereClause) String() string {
	return "where " + expr.Format(c.Predicate)
}

// TransformExpressions implements Clause.
func (c *WhereClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Predicate = fn(c.Predicate)
}

// CloneBody implements BodyClause.
func (c *WhereClause) CloneBody(ctx *CloneContext) BodyClause {
	return &WhereClause{Predicate: ctx.Rewrite(c.Predicate)}
}

// JoinClause correlates items of an inner sequence with the current items
// by key equality.
type JoinClause struct {
	Name             string
	Type             expr.Type
	InnerSequence    expr.Expr
	OuterKeySelector expr.Expr
	InnerKeySelector expr.Expr
}

func (*JoinClause) clauseNode() {}

// NewJoinClause creates a join clause.
func NewJoinClause(name string, itemType expr.Type, inner, outerKey, innerKey expr.Expr) *JoinClause {
	return &JoinClause{
		Name:             name,
		Type:             itemType.OrAny(),
		InnerSequence:    inner,
		OuterKeySelector: outerKey,
		InnerKeySelector: innerKey,
	}
}

// ItemName implements expr.QuerySource.
func (c *JoinClause) ItemName() string { return c.Name }

// ItemType implements expr.QuerySource.
func (c *JoinClause) ItemType() expr.Type { return c.Type }

func (c *JoinClause) String() string {
	return fmt.Sprintf("join %s in %s on %s equals %s",
		c.Name, expr.Format(c.InnerSequence), expr.Format(c.OuterKeySelector), expr.Format(c.InnerKeySelector))
}

// TransformExpressions implements Clause.
func (c *JoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.InnerSequence = fn(c.InnerSequence)
	c.OuterKeySelector = fn(c.OuterKeySelector)
	c.InnerKeySelector = fn(c.InnerKeySelector)
}

// CloneBody implements BodyClause.
func (c *JoinClause) CloneBody(ctx *CloneContext) BodyClause {
	return c.clone(ctx)
}

func (c *JoinClause) clone(ctx *CloneContext) *JoinClause {
	out := &JoinClause{Name: c.Name, Type: c.Type, InnerSequence: ctx.Rewrite(c.InnerSequence)}
	out.OuterKeySelector = ctx.Rewrite(c.OuterKeySelector)
	// The inner key refers to c itself.
	ctx.Mapping.Add(c, expr.Ref(out))
	out.InnerKeySelector = ctx.Rewrite(c.InnerKeySelector)
	return out
}

// GroupJoinClause pairs each current item with the sequence of inner items
// whose key matches. The items it produces are those matching sequences.
type GroupJoinClause struct {
	Name       string
	Type       expr.Type
	JoinClause *JoinClause
}

func (*GroupJoinClause) clauseNode() {}

// NewGroupJoinClause wraps join into a group join named and typed after the
// sequence of matches.
func NewGroupJoinClause(name string, itemType expr.Type, join *JoinClause) *GroupJoinClause {
	return &GroupJoinClause{Name: name, Type: itemType.OrAny(), JoinClause: join}
}

// ItemName implements expr.QuerySource.
func (c *GroupJoinClause) ItemName() string { return c.Name }

// ItemType implements expr.QuerySource.
func (c *GroupJoinClause) ItemType() expr.Type { return c.Type }

func (c *GroupJoinClause) String() string {
	return c.JoinClause.String() + " into " + c.Name
}

// TransformExpressions implements Clause.
func (c *GroupJoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.JoinClause.TransformExpressions(fn)
}

// CloneBody implements BodyClause.
func (c *GroupJoinClause) CloneBody(ctx *CloneContext) BodyClause {
	out := &GroupJoinClause{Name: c.Name, Type: c.Type, JoinClause: c.JoinClause.clone(ctx)}
	ctx.Mapping.Add(c, expr.Ref(out))
	return out
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Ordering is one sort key of an order by clause.
type Ordering struct {
	Expression expr.Expr
	Direction  Direction
}

// OrderByClause sorts items by one or more keys, most significant first.
type OrderByClause struct {
	Orderings []Ordering
}

func (*OrderByClause) clauseNode() {}

// NewOrderByClause creates an order by clause.
func NewOrderByClause(orderings ...Ordering) *OrderByClause {
	return &OrderByClause{Orderings: orderings}
}

func (c *OrderByClause) String() string {
	parts := make([]string, len(c.Orderings))
	for i, o := range c.Orderings {
		parts[i] = expr.Format(o.Expression) + " " + string(o.Direction)
	}
	return "orderby " + strings.Join(parts, ", ")
}

// TransformExpressions implements Clause.
func (c *OrderByClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	for i := range c.Orderings {
		c.Orderings[i].Expression = fn(c.Orderings[i].Expression)
	}
}

// CloneBody implements BodyClause.
func (c *OrderByClause) CloneBody(ctx *CloneContext) BodyClause {
	out := &OrderByClause{Orderings: make([]Ordering, len(c.Orderings))}
	for i, o := range c.Orderings {
		out.Orderings[i] = Ordering{Expression: ctx.Rewrite(o.Expression), Direction: o.Direction}
	}
	return out
}

// SelectClause projects each item. Its selector is provisional until the
// last node of a chain has been applied.
type SelectClause struct {
	Selector expr.Expr
}

func (*SelectClause) clauseNode() {}

// NewSelectClause creates a select clause.
func NewSelectClause(selector expr.Expr) *SelectClause {
	return &SelectClause{Selector: selector}
}

func (c *SelectClause) String() string {
	return "select " + expr.Format(c.Selector)
}

// TransformExpressions implements Clause.
func (c *SelectClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Selector = fn(c.Selector)
}

// Clone copies the clause.
func (c *SelectClause) Clone(ctx *CloneContext) *SelectClause {
	return &SelectClause{Selector: ctx.Rewrite(c.Selector)}
}
