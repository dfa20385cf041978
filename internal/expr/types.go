package expr

import "strings"

// Type describes the static type of an expression or query-source item.
// Sequence types are written with a "[]" prefix, e.g. "[]Order".
type Type string

// Well-known types.
const (
	TypeAny    Type = "any"
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeString Type = "string"
	TypeObject Type = "object"
)

// SequenceOf returns the sequence type whose items have type t.
func SequenceOf(t Type) Type {
	if t == "" {
		t = TypeAny
	}
	return Type("[]" + string(t))
}

// IsSequence reports whether t is a sequence type.
func (t Type) IsSequence() bool {
	return strings.HasPrefix(string(t), "[]")
}

// ElementOf returns the item type of a sequence type, or TypeAny when t is
// not a sequence.
func ElementOf(t Type) Type {
	if !t.IsSequence() {
		return TypeAny
	}
	return Type(strings.TrimPrefix(string(t), "[]"))
}

// OrAny returns t, or TypeAny if t is empty.
func (t Type) OrAny() Type {
	if t == "" {
		return TypeAny
	}
	return t
}

func inferType(v any) Type {
	switch v.(type) {
	case nil:
		return TypeAny
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case string:
		return TypeString
	case map[string]any:
		return TypeObject
	case []any:
		return SequenceOf(TypeAny)
	default:
		return TypeAny
	}
}

// TypeOf infers the type of e. Inference is best effort: member accesses on
// anything but an anonymous object yield TypeAny.
func TypeOf(e Expr) Type {
	switch e := e.(type) {
	case *Parameter:
		return e.Type.OrAny()
	case *Constant:
		return e.Type.OrAny()
	case *TableRef:
		return SequenceOf(e.ItemType)
	case *Member:
		if n, ok := e.Target.(*New); ok {
			if f, ok := n.Field(e.Name); ok {
				return TypeOf(f)
			}
		}
		return TypeAny
	case *Binary:
		if e.Op.IsComparison() || e.Op.IsLogical() {
			return TypeBool
		}
		lt, rt := TypeOf(e.Left), TypeOf(e.Right)
		switch {
		case lt == rt:
			return lt
		case lt == TypeFloat || rt == TypeFloat:
			return TypeFloat
		default:
			return TypeAny
		}
	case *Unary:
		if e.Op == OpNot {
			return TypeBool
		}
		return TypeOf(e.Operand)
	case *Conditional:
		return TypeOf(e.IfTrue)
	case *Call:
		return TypeBool
	case *New:
		return TypeObject
	case *Lambda:
		return TypeOf(e.Body)
	case *QuerySourceRef:
		return e.Source.ItemType().OrAny()
	case *SubQuery:
		return e.Query.ResultType()
	default:
		return TypeAny
	}
}
