package expr

import "reflect"

// Transform rewrites e bottom-up. fn is applied to every node after its
// children have been transformed. Nodes whose children are unchanged keep
// their identity, so Transform(e, identity) returns e itself.
//
// Lambda parameters are not visited. SubQuery contents are opaque.
func Transform(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	return fn(transformChildren(e, func(c Expr) Expr { return Transform(c, fn) }))
}

// transformChildren rebuilds e with each child replaced by visit(child).
func transformChildren(e Expr, visit func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Member:
		t := visit(n.Target)
		if t == n.Target {
			return n
		}
		return &Member{Target: t, Name: n.Name}
	case *Binary:
		l, r := visit(n.Left), visit(n.Right)
		if l == n.Left && r == n.Right {
			return n
		}
		return &Binary{Op: n.Op, Left: l, Right: r}
	case *Unary:
		o := visit(n.Operand)
		if o == n.Operand {
			return n
		}
		return &Unary{Op: n.Op, Operand: o}
	case *Conditional:
		t, a, b := visit(n.Test), visit(n.IfTrue), visit(n.IfFalse)
		if t == n.Test && a == n.IfTrue && b == n.IfFalse {
			return n
		}
		return &Conditional{Test: t, IfTrue: a, IfFalse: b}
	case *Call:
		t := visit(n.Target)
		changed := t != n.Target
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = visit(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return n
		}
		return &Call{Target: t, Method: n.Method, Args: args}
	case *New:
		changed := false
		fields := make([]Field, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = Field{Name: f.Name, Value: visit(f.Value)}
			changed = changed || fields[i].Value != f.Value
		}
		if !changed {
			return n
		}
		return &New{Fields: fields}
	case *Lambda:
		b := visit(n.Body)
		if b == n.Body {
			return n
		}
		return &Lambda{Params: n.Params, Body: b}
	default:
		// Leaves: Parameter, Constant, TableRef, QuerySourceRef, SubQuery.
		return e
	}
}

// rewriteTopDown offers every node to fn before its children. When fn
// returns true the returned node replaces the subtree and is not descended.
func rewriteTopDown(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	return transformChildren(e, func(c Expr) Expr { return rewriteTopDown(c, fn) })
}

// Walk visits e in pre-order. Returning false from fn skips the children
// of the visited node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Member:
		Walk(n.Target, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Conditional:
		Walk(n.Test, fn)
		Walk(n.IfTrue, fn)
		Walk(n.IfFalse, fn)
	case *Call:
		Walk(n.Target, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *New:
		for _, f := range n.Fields {
			Walk(f.Value, fn)
		}
	case *Lambda:
		Walk(n.Body, fn)
	}
}

// Replace substitutes with for every occurrence of param in e.
func Replace(param *Parameter, with Expr, e Expr) Expr {
	return Transform(e, func(n Expr) Expr {
		if p, ok := n.(*Parameter); ok && p == param {
			return with
		}
		return n
	})
}

// ReplaceSourceRefs rewrites every QuerySourceRef for which lookup returns
// a replacement. Unmapped references are left untouched.
func ReplaceSourceRefs(e Expr, lookup func(QuerySource) (Expr, bool)) Expr {
	return Transform(e, func(n Expr) Expr {
		if ref, ok := n.(*QuerySourceRef); ok {
			if r, ok := lookup(ref.Source); ok {
				return r
			}
		}
		return n
	})
}

// FreeParameters returns the parameters referenced in e that are not bound
// by a lambda inside e, in first-occurrence order.
func FreeParameters(e Expr) []*Parameter {
	var out []*Parameter
	seen := map[*Parameter]bool{}
	var visit func(Expr, map[*Parameter]bool)
	visit = func(e Expr, bound map[*Parameter]bool) {
		Walk(e, func(n Expr) bool {
			switch n := n.(type) {
			case *Parameter:
				if !bound[n] && !seen[n] {
					seen[n] = true
					out = append(out, n)
				}
			case *Lambda:
				inner := make(map[*Parameter]bool, len(bound)+len(n.Params))
				for p := range bound {
					inner[p] = true
				}
				for _, p := range n.Params {
					inner[p] = true
				}
				visit(n.Body, inner)
				return false
			}
			return true
		})
	}
	visit(e, map[*Parameter]bool{})
	return out
}

// ContainsQuerySourceRef reports whether e references any query source or
// embeds a subquery.
func ContainsQuerySourceRef(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch n.(type) {
		case *QuerySourceRef, *SubQuery:
			found = true
		}
		return !found
	})
	return found
}

// QuerySources returns the distinct query sources referenced by e.
func QuerySources(e Expr) []QuerySource {
	var out []QuerySource
	Walk(e, func(n Expr) bool {
		if ref, ok := n.(*QuerySourceRef); ok {
			for _, s := range out {
				if s == ref.Source {
					return true
				}
			}
			out = append(out, ref.Source)
		}
		return true
	})
	return out
}

// Equal reports structural equality. Parameters, query sources and
// subqueries compare by identity.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Parameter:
		return a == b
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.Type == y.Type && reflect.DeepEqual(x.Value, y.Value)
	case *TableRef:
		y, ok := b.(*TableRef)
		return ok && x.Name == y.Name && x.ItemType == y.ItemType
	case *Member:
		y, ok := b.(*Member)
		return ok && x.Name == y.Name && Equal(x.Target, y.Target)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Conditional:
		y, ok := b.(*Conditional)
		return ok && Equal(x.Test, y.Test) && Equal(x.IfTrue, y.IfTrue) && Equal(x.IfFalse, y.IfFalse)
	case *Call:
		y, ok := b.(*Call)
		if !ok || x.Method != y.Method || len(x.Args) != len(y.Args) || !Equal(x.Target, y.Target) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *New:
		y, ok := b.(*New)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case *Lambda:
		y, ok := b.(*Lambda)
		if !ok || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if x.Params[i] != y.Params[i] {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	case *QuerySourceRef:
		y, ok := b.(*QuerySourceRef)
		return ok && x.Source == y.Source
	case *SubQuery:
		y, ok := b.(*SubQuery)
		return ok && x.Query == y.Query
	}
	return false
}
