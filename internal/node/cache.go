package node

import "github.com/roach88/pipeq/internal/expr"

// resolvedCache is a single memoization slot: unset, or a computed
// expression. Failed computations leave it unset.
type resolvedCache struct {
	computed bool
	value    expr.Expr
}

func (c *resolvedCache) get(compute func() (expr.Expr, error)) (expr.Expr, error) {
	if c.computed {
		return c.value, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.value, c.computed = v, true
	return v, nil
}
