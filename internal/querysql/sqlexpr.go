package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/pipeq/internal/expr"
)

var binaryOps = map[expr.Op]string{
	expr.OpAdd:          "+",
	expr.OpSubtract:     "-",
	expr.OpMultiply:     "*",
	expr.OpDivide:       "/",
	expr.OpModulo:       "%",
	expr.OpEqual:        "=",
	expr.OpNotEqual:     "<>",
	expr.OpLess:         "<",
	expr.OpLessEqual:    "<=",
	expr.OpGreater:      ">",
	expr.OpGreaterEqual: ">=",
	expr.OpAnd:          "AND",
	expr.OpOr:           "OR",
}

// scalar renders e as a SQL value expression with "?" placeholders.
func (c *compiler) scalar(e expr.Expr) (string, []any, error) {
	w := &sqlWriter{c: c}
	if err := w.write(reduceMembers(e)); err != nil {
		return "", nil, err
	}
	return w.sb.String(), w.args, nil
}

// reduceMembers replaces member accesses on object constructions with the
// member's value, so that projections flattened through selectors
// translate column by column.
func reduceMembers(e expr.Expr) expr.Expr {
	return expr.Transform(e, func(e expr.Expr) expr.Expr {
		m, ok := e.(*expr.Member)
		if !ok {
			return e
		}
		obj, ok := m.Target.(*expr.New)
		if !ok {
			return e
		}
		if v, ok := obj.Field(m.Name); ok {
			return v
		}
		return e
	})
}

type sqlWriter struct {
	c    *compiler
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) write(e expr.Expr) error {
	switch e := e.(type) {
	case *expr.Constant:
		if e.IsNull() {
			w.sb.WriteString("NULL")
			return nil
		}
		w.sb.WriteString("?")
		w.args = append(w.args, e.Value)
		return nil
	case *expr.Member:
		ref, ok := e.Target.(*expr.QuerySourceRef)
		if !ok {
			return fmt.Errorf("%w: member access %s", ErrUnsupported, expr.Format(e))
		}
		proj, ok := w.c.sources[ref.Source]
		if !ok || proj.Kind == ProjectValue {
			return fmt.Errorf("%w: member access %s", ErrUnsupported, expr.Format(e))
		}
		w.sb.WriteString(quoteIdent(ref.Source.ItemName()) + "." + quoteIdent(e.Name))
		return nil
	case *expr.QuerySourceRef:
		proj, ok := w.c.sources[e.Source]
		if !ok || proj.Kind != ProjectValue {
			return fmt.Errorf("%w: whole item [%s] used as a value", ErrUnsupported, e.Source.ItemName())
		}
		w.sb.WriteString(quoteIdent(e.Source.ItemName()) + "." + quoteIdent(valueColumn))
		return nil
	case *expr.Binary:
		return w.binary(e)
	case *expr.Unary:
		switch e.Op {
		case expr.OpNot:
			w.sb.WriteString("NOT ")
			return w.write(e.Operand)
		case expr.OpNegate:
			// "--" would open a line comment.
			w.sb.WriteString("-(")
			if err := w.write(e.Operand); err != nil {
				return err
			}
			w.sb.WriteString(")")
			return nil
		default:
			return fmt.Errorf("%w: unary operator %q", ErrUnsupported, e.Op)
		}
	case *expr.Conditional:
		w.sb.WriteString("(CASE WHEN ")
		if err := w.write(e.Test); err != nil {
			return err
		}
		w.sb.WriteString(" THEN ")
		if err := w.write(e.IfTrue); err != nil {
			return err
		}
		w.sb.WriteString(" ELSE ")
		if err := w.write(e.IfFalse); err != nil {
			return err
		}
		w.sb.WriteString(" END)")
		return nil
	case *expr.Call:
		return w.call(e)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, expr.Format(e))
	}
}

func (w *sqlWriter) binary(e *expr.Binary) error {
	if e.Op == expr.OpEqual || e.Op == expr.OpNotEqual {
		operand, ok := nullComparison(e)
		if ok {
			w.sb.WriteString("(")
			if err := w.write(operand); err != nil {
				return err
			}
			if e.Op == expr.OpEqual {
				w.sb.WriteString(" IS NULL)")
			} else {
				w.sb.WriteString(" IS NOT NULL)")
			}
			return nil
		}
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return fmt.Errorf("%w: operator %q", ErrUnsupported, e.Op)
	}
	w.sb.WriteString("(")
	if err := w.write(e.Left); err != nil {
		return err
	}
	w.sb.WriteString(" " + op + " ")
	if err := w.write(e.Right); err != nil {
		return err
	}
	w.sb.WriteString(")")
	return nil
}

func nullComparison(e *expr.Binary) (expr.Expr, bool) {
	if c, ok := e.Right.(*expr.Constant); ok && c.IsNull() {
		return e.Left, true
	}
	if c, ok := e.Left.(*expr.Constant); ok && c.IsNull() {
		return e.Right, true
	}
	return nil, false
}

func (w *sqlWriter) call(e *expr.Call) error {
	if len(e.Args) != 1 {
		return fmt.Errorf("%w: %s with %d arguments", ErrUnsupported, e.Method, len(e.Args))
	}
	target, arg := e.Target, e.Args[0]
	var parts []any
	switch e.Method {
	case expr.MethodContains:
		parts = []any{"(instr(", target, ", ", arg, ") > 0)"}
	case expr.MethodStartsWith:
		parts = []any{"(instr(", target, ", ", arg, ") = 1)"}
	case expr.MethodEndsWith:
		parts = []any{"(length(", arg, ") = 0 OR substr(", target, ", -length(", arg, ")) = ", arg, ")"}
	default:
		return fmt.Errorf("%w: method %q", ErrUnsupported, e.Method)
	}
	for _, p := range parts {
		switch p := p.(type) {
		case string:
			w.sb.WriteString(p)
		case expr.Expr:
			if err := w.write(p); err != nil {
				return err
			}
		}
	}
	return nil
}
