package expr

// Expr is a node of an expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Parameter is a formal parameter bound by a Lambda.
// Parameters are compared by pointer identity.
type Parameter struct {
	Name string
	Type Type
}

func (*Parameter) exprNode() {}

// NewParameter creates a parameter. An empty type means TypeAny.
func NewParameter(name string, t Type) *Parameter {
	return &Parameter{Name: name, Type: t.OrAny()}
}

// Constant is a literal value.
type Constant struct {
	Value any
	Type  Type
}

func (*Constant) exprNode() {}

// NewConstant creates a constant whose type is inferred from v.
func NewConstant(v any) *Constant {
	return &Constant{Value: v, Type: inferType(v)}
}

// Null creates a typed null constant.
func Null(t Type) *Constant {
	return &Constant{Value: nil, Type: t.OrAny()}
}

// IsNull reports whether c is a null constant.
func (c *Constant) IsNull() bool {
	return c.Value == nil
}

// TableRef names a data source known to the backend (a table, a collection).
type TableRef struct {
	Name     string
	ItemType Type
}

func (*TableRef) exprNode() {}

// NewTableRef creates a reference to the named data source.
func NewTableRef(name string, itemType Type) *TableRef {
	return &TableRef{Name: name, ItemType: itemType.OrAny()}
}

// Member accesses a named member (field, column) of its target.
type Member struct {
	Target Expr
	Name   string
}

func (*Member) exprNode() {}

// NewMember creates a member access.
func NewMember(target Expr, name string) *Member {
	return &Member{Target: target, Name: name}
}

// Op is a binary operator, spelled the way CEL spells it.
type Op string

// Binary operators.
const (
	OpAdd          Op = "+"
	OpSubtract     Op = "-"
	OpMultiply     Op = "*"
	OpDivide       Op = "/"
	OpModulo       Op = "%"
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpAnd          Op = "&&"
	OpOr           Op = "||"
)

// IsComparison reports whether op compares its operands.
func (op Op) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// IsLogical reports whether op is a boolean connective.
func (op Op) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Binary applies a binary operator.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*Binary) exprNode() {}

// NewBinary creates a binary expression.
func NewBinary(op Op, left, right Expr) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// UnaryOp is a unary operator.
type UnaryOp string

// Unary operators.
const (
	OpNot    UnaryOp = "!"
	OpNegate UnaryOp = "-"
)

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (*Unary) exprNode() {}

// NewNot negates a boolean expression.
func NewNot(operand Expr) *Unary {
	return &Unary{Op: OpNot, Operand: operand}
}

// Conditional is "Test ? IfTrue : IfFalse".
type Conditional struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
}

func (*Conditional) exprNode() {}

// String methods supported by Call.
const (
	MethodContains   = "contains"
	MethodStartsWith = "startsWith"
	MethodEndsWith   = "endsWith"
)

// Call invokes a string method on its target.
type Call struct {
	Target Expr
	Method string
	Args   []Expr
}

func (*Call) exprNode() {}

// Field is a named member of a New expression.
type Field struct {
	Name  string
	Value Expr
}

// New builds an anonymous object from named members. Field order is
// significant and preserved.
type New struct {
	Fields []Field
}

func (*New) exprNode() {}

// NewObject creates an anonymous object expression.
func NewObject(fields ...Field) *New {
	return &New{Fields: fields}
}

// Field returns the value of the named member.
func (n *New) Field(name string) (Expr, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Lambda binds Params within Body.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

func (*Lambda) exprNode() {}

// NewLambda creates a lambda.
func NewLambda(body Expr, params ...*Parameter) *Lambda {
	return &Lambda{Params: params, Body: body}
}

// QuerySource is an addressable handle produced by clause generation.
// Clauses of a query model implement it.
type QuerySource interface {
	ItemName() string
	ItemType() Type
}

// QuerySourceRef references the current item of a query source.
type QuerySourceRef struct {
	Source QuerySource
}

func (*QuerySourceRef) exprNode() {}

// Ref creates a reference to src.
func Ref(src QuerySource) *QuerySourceRef {
	return &QuerySourceRef{Source: src}
}

// Query is a nested query embedded as an expression.
type Query interface {
	String() string
	ResultType() Type
}

// SubQuery embeds a nested query.
type SubQuery struct {
	Query Query
}

func (*SubQuery) exprNode() {}

// NewSubQuery wraps q as an expression.
func NewSubQuery(q Query) *SubQuery {
	return &SubQuery{Query: q}
}
