package model

import "fmt"

// Visitor receives the parts of a query model in order: main from clause,
// body clauses, select clause, result operators. Returning an error stops
// the walk.
type Visitor interface {
	VisitMainFromClause(c *MainFromClause, qm *QueryModel) error
	VisitWhereClause(c *WhereClause, qm *QueryModel, index int) error
	VisitJoinClause(c *JoinClause, qm *QueryModel, index int) error
	VisitGroupJoinClause(c *GroupJoinClause, qm *QueryModel, index int) error
	VisitOrderByClause(c *OrderByClause, qm *QueryModel, index int) error
	VisitSelectClause(c *SelectClause, qm *QueryModel) error
	VisitResultOperator(op ResultOperator, qm *QueryModel, index int) error
}

// Accept walks qm with v.
func (qm *QueryModel) Accept(v Visitor) error {
	if err := v.VisitMainFromClause(qm.MainFromClause, qm); err != nil {
		return err
	}
	for i, c := range qm.BodyClauses {
		var err error
		switch c := c.(type) {
		case *WhereClause:
			err = v.VisitWhereClause(c, qm, i)
		case *JoinClause:
			err = v.VisitJoinClause(c, qm, i)
		case *GroupJoinClause:
			err = v.VisitGroupJoinClause(c, qm, i)
		case *OrderByClause:
			err = v.VisitOrderByClause(c, qm, i)
		default:
			err = fmt.Errorf("unknown body clause %T", c)
		}
		if err != nil {
			return err
		}
	}
	if err := v.VisitSelectClause(qm.SelectClause, qm); err != nil {
		return err
	}
	for i, op := range qm.ResultOperators {
		if err := v.VisitResultOperator(op, qm, i); err != nil {
			return err
		}
	}
	return nil
}
