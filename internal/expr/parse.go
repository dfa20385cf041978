package expr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
)

// ParseError reports malformed lambda text.
type ParseError struct {
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Text, e.Message)
}

var parseEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv()
})

// ParseLambda parses lambda text of the form
//
//	o => o.total > 100
//	(o, c) => {"id": o.id, "name": c.name}
//	(o: Order) => o.status == "open"
//
// The body uses CEL syntax. Identifiers in the body must be lambda
// parameters.
func ParseLambda(text string) (*Lambda, error) {
	head, body, ok := strings.Cut(text, "=>")
	if !ok {
		return nil, &ParseError{Text: text, Message: `missing "=>"`}
	}
	params, err := parseParams(head)
	if err != nil {
		return nil, &ParseError{Text: text, Message: err.Error()}
	}
	scope := make(map[string]*Parameter, len(params))
	for _, p := range params {
		if _, dup := scope[p.Name]; dup {
			return nil, &ParseError{Text: text, Message: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		scope[p.Name] = p
	}
	b, err := ParseBody(body, scope)
	if err != nil {
		return nil, &ParseError{Text: text, Message: err.Error()}
	}
	return NewLambda(b, params...), nil
}

func parseParams(head string) ([]*Parameter, error) {
	head = strings.TrimSpace(head)
	if strings.HasPrefix(head, "(") && strings.HasSuffix(head, ")") {
		head = strings.TrimSpace(head[1 : len(head)-1])
	}
	if head == "" {
		return nil, nil
	}
	var params []*Parameter
	for _, part := range strings.Split(head, ",") {
		name, typ, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !celIdent.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q", name)
		}
		params = append(params, NewParameter(name, Type(strings.TrimSpace(typ))))
	}
	return params, nil
}

// ParseBody parses a CEL expression whose identifiers resolve through scope.
func ParseBody(body string, scope map[string]*Parameter) (Expr, error) {
	env, err := parseEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(strings.TrimSpace(body))
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return fromCEL(ast.NativeRep().Expr(), scope)
}

var celBinaryOps = map[string]Op{
	operators.Add:           OpAdd,
	operators.Subtract:      OpSubtract,
	operators.Multiply:      OpMultiply,
	operators.Divide:        OpDivide,
	operators.Modulo:        OpModulo,
	operators.Equals:        OpEqual,
	operators.NotEquals:     OpNotEqual,
	operators.Less:          OpLess,
	operators.LessEquals:    OpLessEqual,
	operators.Greater:       OpGreater,
	operators.GreaterEquals: OpGreaterEqual,
	operators.LogicalAnd:    OpAnd,
	operators.LogicalOr:     OpOr,
}

func fromCEL(e celast.Expr, scope map[string]*Parameter) (Expr, error) {
	switch e.Kind() {
	case celast.IdentKind:
		name := e.AsIdent()
		p, ok := scope[name]
		if !ok {
			return nil, fmt.Errorf("undeclared identifier %q", name)
		}
		return p, nil

	case celast.LiteralKind:
		switch lit := e.AsLiteral().(type) {
		case types.Int:
			return NewConstant(int64(lit)), nil
		case types.Uint:
			return NewConstant(uint64(lit)), nil
		case types.Double:
			return NewConstant(float64(lit)), nil
		case types.String:
			return NewConstant(string(lit)), nil
		case types.Bool:
			return NewConstant(bool(lit)), nil
		case types.Null:
			return Null(TypeAny), nil
		default:
			return nil, fmt.Errorf("unsupported literal %v", lit)
		}

	case celast.SelectKind:
		sel := e.AsSelect()
		if sel.IsTestOnly() {
			return nil, fmt.Errorf("has() is not supported")
		}
		target, err := fromCEL(sel.Operand(), scope)
		if err != nil {
			return nil, err
		}
		return NewMember(target, sel.FieldName()), nil

	case celast.MapKind:
		var fields []Field
		for _, entry := range e.AsMap().Entries() {
			me := entry.AsMapEntry()
			if me.Key().Kind() != celast.LiteralKind {
				return nil, fmt.Errorf("object keys must be string literals")
			}
			key, ok := me.Key().AsLiteral().(types.String)
			if !ok {
				return nil, fmt.Errorf("object keys must be string literals")
			}
			v, err := fromCEL(me.Value(), scope)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: string(key), Value: v})
		}
		return NewObject(fields...), nil

	case celast.CallKind:
		return callFromCEL(e.AsCall(), scope)

	default:
		return nil, fmt.Errorf("unsupported expression kind %v", e.Kind())
	}
}

func callFromCEL(call celast.CallExpr, scope map[string]*Parameter) (Expr, error) {
	args := make([]Expr, 0, len(call.Args()))
	for _, a := range call.Args() {
		x, err := fromCEL(a, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	fn := call.FunctionName()

	if call.IsMemberFunction() {
		switch fn {
		case MethodContains, MethodStartsWith, MethodEndsWith:
			target, err := fromCEL(call.Target(), scope)
			if err != nil {
				return nil, err
			}
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes exactly one argument", fn)
			}
			return &Call{Target: target, Method: fn, Args: args}, nil
		}
		return nil, fmt.Errorf("unsupported method %q", fn)
	}

	if op, ok := celBinaryOps[fn]; ok && len(args) == 2 {
		return NewBinary(op, args[0], args[1]), nil
	}
	switch fn {
	case operators.LogicalNot:
		return NewNot(args[0]), nil
	case operators.Negate:
		return &Unary{Op: OpNegate, Operand: args[0]}, nil
	case operators.Conditional:
		return &Conditional{Test: args[0], IfTrue: args[1], IfFalse: args[2]}, nil
	case operators.Index:
		if key, ok := args[1].(*Constant); ok {
			if name, ok := key.Value.(string); ok {
				return NewMember(args[0], name), nil
			}
		}
		return nil, fmt.Errorf("index must be a string literal")
	}
	return nil, fmt.Errorf("unsupported function %q", fn)
}
