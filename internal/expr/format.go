package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders e for diagnostics. Query-source references render as
// "[name]", lambdas as "i => body":
//
//	i => (i > [x])
func Format(e Expr) string {
	var sb strings.Builder
	format(&sb, e)
	return sb.String()
}

func format(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Parameter:
		sb.WriteString(n.Name)
	case *Constant:
		sb.WriteString(formatConstant(n.Value))
	case *TableRef:
		sb.WriteString(n.Name)
	case *Member:
		format(sb, n.Target)
		sb.WriteByte('.')
		sb.WriteString(n.Name)
	case *Binary:
		sb.WriteByte('(')
		format(sb, n.Left)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		format(sb, n.Right)
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(string(n.Op))
		format(sb, n.Operand)
	case *Conditional:
		sb.WriteByte('(')
		format(sb, n.Test)
		sb.WriteString(" ? ")
		format(sb, n.IfTrue)
		sb.WriteString(" : ")
		format(sb, n.IfFalse)
		sb.WriteByte(')')
	case *Call:
		format(sb, n.Target)
		sb.WriteByte('.')
		sb.WriteString(n.Method)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, a)
		}
		sb.WriteByte(')')
	case *New:
		sb.WriteString("new {")
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(" = ")
			format(sb, f.Value)
		}
		sb.WriteByte('}')
	case *Lambda:
		if len(n.Params) == 1 {
			sb.WriteString(n.Params[0].Name)
		} else {
			sb.WriteByte('(')
			for i, p := range n.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(p.Name)
			}
			sb.WriteByte(')')
		}
		sb.WriteString(" => ")
		format(sb, n.Body)
	case *QuerySourceRef:
		sb.WriteByte('[')
		sb.WriteString(n.Source.ItemName())
		sb.WriteByte(']')
	case *SubQuery:
		sb.WriteByte('{')
		sb.WriteString(n.Query.String())
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

func formatConstant(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
