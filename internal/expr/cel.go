package expr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// ErrNotCompilable is returned when an expression cannot be evaluated
// locally, typically because it still references a query source.
var ErrNotCompilable = errors.New("expression is not locally evaluable")

var celIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ToCEL renders e as CEL source text.
func ToCEL(e Expr) (string, error) {
	var sb strings.Builder
	if err := writeCEL(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCEL(sb *strings.Builder, e Expr) error {
	switch n := e.(type) {
	case *Parameter:
		sb.WriteString(n.Name)
	case *Constant:
		lit, err := celLiteral(n.Value)
		if err != nil {
			return err
		}
		sb.WriteString(lit)
	case *Member:
		if err := writeCEL(sb, n.Target); err != nil {
			return err
		}
		if celIdent.MatchString(n.Name) {
			sb.WriteByte('.')
			sb.WriteString(n.Name)
		} else {
			sb.WriteByte('[')
			sb.WriteString(strconv.Quote(n.Name))
			sb.WriteByte(']')
		}
	case *Binary:
		sb.WriteByte('(')
		if err := writeCEL(sb, n.Left); err != nil {
			return err
		}
		sb.WriteString(" " + string(n.Op) + " ")
		if err := writeCEL(sb, n.Right); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(string(n.Op) + "(")
		if err := writeCEL(sb, n.Operand); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *Conditional:
		sb.WriteByte('(')
		if err := writeCEL(sb, n.Test); err != nil {
			return err
		}
		sb.WriteString(" ? ")
		if err := writeCEL(sb, n.IfTrue); err != nil {
			return err
		}
		sb.WriteString(" : ")
		if err := writeCEL(sb, n.IfFalse); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *Call:
		if err := writeCEL(sb, n.Target); err != nil {
			return err
		}
		sb.WriteString("." + n.Method + "(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeCEL(sb, a); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *New:
		sb.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(f.Name) + ": ")
			if err := writeCEL(sb, f.Value); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case *Lambda:
		return writeCEL(sb, n.Body)
	case *QuerySourceRef, *SubQuery, *TableRef:
		return fmt.Errorf("%w: %s", ErrNotCompilable, Format(e))
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
	return nil
}

func celLiteral(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case string:
		return strconv.Quote(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%du", v), nil
	case float32:
		return celFloat(float64(v))
	case float64:
		return celFloat(v)
	default:
		return "", fmt.Errorf("unsupported constant type for CEL: %T", v)
	}
}

func celFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite float constant: %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}

// Program is a lambda compiled for in-memory evaluation.
type Program struct {
	Source string
	params []*Parameter
	prg    cel.Program
}

// Compile prepares l for in-memory evaluation. It fails with
// ErrNotCompilable when the body references a query source, embeds a
// subquery or uses parameters the lambda does not bind.
func Compile(l *Lambda) (*Program, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: nil lambda", ErrNotCompilable)
	}
	if ContainsQuerySourceRef(l.Body) {
		return nil, fmt.Errorf("%w: %s", ErrNotCompilable, Format(l))
	}
	bound := make(map[*Parameter]bool, len(l.Params))
	for _, p := range l.Params {
		bound[p] = true
	}
	for _, p := range FreeParameters(l.Body) {
		if !bound[p] {
			return nil, fmt.Errorf("%w: unbound parameter %q in %s", ErrNotCompilable, p.Name, Format(l))
		}
	}

	src, err := ToCEL(l.Body)
	if err != nil {
		return nil, err
	}

	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, p := range l.Params {
		opts = append(opts, cel.Variable(p.Name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", src, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("creating CEL program: %w", err)
	}
	return &Program{Source: src, params: l.Params, prg: prg}, nil
}

// Eval evaluates the program with one argument per lambda parameter.
func (p *Program) Eval(args ...any) (any, error) {
	if len(args) != len(p.params) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(p.params), len(args))
	}
	vars := make(map[string]any, len(args))
	for i, param := range p.params {
		vars[param.Name] = args[i]
	}
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", p.Source, err)
	}
	return toNative(out)
}

// EvalBool evaluates a predicate.
func (p *Program) EvalBool(args ...any) (bool, error) {
	v, err := p.Eval(args...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("predicate %q returned %T, expected bool", p.Source, v)
	}
	return b, nil
}

func toNative(v ref.Val) (any, error) {
	switch v := v.(type) {
	case *types.Err:
		return nil, v
	case types.Bool:
		return bool(v), nil
	case types.Int:
		return int64(v), nil
	case types.Uint:
		return uint64(v), nil
	case types.Double:
		return float64(v), nil
	case types.String:
		return string(v), nil
	case types.Null:
		return nil, nil
	case traits.Mapper:
		return v.ConvertToNative(reflect.TypeOf(map[string]any{}))
	case traits.Lister:
		return v.ConvertToNative(reflect.TypeOf([]any{}))
	default:
		return v.Value(), nil
	}
}
