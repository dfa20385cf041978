package expr

import "fmt"

// ReverseResolve turns an expression resolved against query sources back
// into a one-parameter lambda over the items produced by selector.
//
// Every subexpression of resolved that matches selector (or, for an
// anonymous object selector, one of its members) is replaced by an access on
// the new parameter. If a query-source reference survives the rewrite, the
// expression depends on data the selector does not project and
// ErrNotCompilable is returned.
func ReverseResolve(selector, resolved Expr) (*Lambda, error) {
	item := NewParameter("item", TypeOf(selector))

	type binding struct {
		pattern Expr
		access  Expr
	}
	var bindings []binding
	var collect func(sel, access Expr)
	collect = func(sel, access Expr) {
		if n, ok := sel.(*New); ok {
			for _, f := range n.Fields {
				collect(f.Value, NewMember(access, f.Name))
			}
			return
		}
		bindings = append(bindings, binding{pattern: sel, access: access})
	}
	collect(selector, item)

	body := rewriteTopDown(resolved, func(n Expr) (Expr, bool) {
		for _, b := range bindings {
			if Equal(n, b.pattern) {
				return b.access, true
			}
		}
		return nil, false
	})
	if ContainsQuerySourceRef(body) {
		return nil, fmt.Errorf("%w: %s is not expressible over %s", ErrNotCompilable, Format(resolved), Format(selector))
	}
	return NewLambda(body, item), nil
}
