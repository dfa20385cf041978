package node

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// ID addresses a node within its Chain.
type ID int

// NoSource is the source ID of the chain's originating node.
const NoSource ID = -1

// ParseInfo describes the pipeline call a node was built from.
type ParseInfo struct {
	// Method is the pipeline operator, e.g. "where" or "groupJoin".
	Method string
	// Position is the index of the call within its pipeline.
	Position int
	// AssociatedIdentifier names the items the call produces, when the
	// front-end knows one.
	AssociatedIdentifier string
	// Source locates the call in its definition, e.g. "orders.cue:12:4".
	Source string
}

func (p ParseInfo) String() string {
	if p.Source == "" {
		return fmt.Sprintf("%s (call %d)", p.Method, p.Position)
	}
	return fmt.Sprintf("%s (call %d at %s)", p.Method, p.Position, p.Source)
}

// Node is one pipeline call of a Chain.
//
// The set of nodes is closed: MainSourceNode, WhereNode, SelectNode,
// OrderByNode, JoinNode, GroupJoinNode and ResultNode.
type Node interface {
	Info() ParseInfo
	// ID is the node's index in its chain, or NoSource before Append.
	ID() ID
	// SourceID is the ID of the node this node consumes.
	SourceID() ID
	base() *nodeBase
}

type nodeBase struct {
	info     ParseInfo
	id       ID
	source   ID
	appended bool
}

func newBase(info ParseInfo, source ID) nodeBase {
	return nodeBase{info: info, id: NoSource, source: source}
}

func (b *nodeBase) Info() ParseInfo { return b.info }
func (b *nodeBase) ID() ID          { return b.id }
func (b *nodeBase) SourceID() ID    { return b.source }
func (b *nodeBase) base() *nodeBase { return b }

var arityWords = []string{"zero", "one", "two", "three"}

func checkLambda(param string, l *expr.Lambda, arity int) error {
	if l == nil {
		return &ArgumentError{Param: param, Message: "must not be nil"}
	}
	if len(l.Params) != arity {
		noun := "parameters"
		if arity == 1 {
			noun = "parameter"
		}
		return &ArgumentError{
			Param:   param,
			Message: fmt.Sprintf("must have exactly %s %s, got %d", arityWords[arity], noun, len(l.Params)),
		}
	}
	return nil
}

// MainSourceNode is the originating data source of a chain.
type MainSourceNode struct {
	nodeBase
	ItemName string
	ItemType expr.Type
	// Expression is the data source: a TableRef or a SubQuery.
	Expression expr.Expr
}

// NewMainSourceNode creates the source node. An empty itemName falls back
// to info.AssociatedIdentifier; an empty itemType is inferred from source.
func NewMainSourceNode(info ParseInfo, itemName string, itemType expr.Type, source expr.Expr) (*MainSourceNode, error) {
	if itemName == "" {
		itemName = info.AssociatedIdentifier
	}
	if itemName == "" {
		return nil, &ArgumentError{Param: "itemName", Message: "must not be empty"}
	}
	if source == nil {
		return nil, &ArgumentError{Param: "source", Message: "must not be nil"}
	}
	if itemType == "" || itemType == expr.TypeAny {
		itemType = expr.ElementOf(expr.TypeOf(source))
	}
	return &MainSourceNode{
		nodeBase:   newBase(info, NoSource),
		ItemName:   itemName,
		ItemType:   itemType,
		Expression: source,
	}, nil
}

// WhereNode filters its input.
type WhereNode struct {
	nodeBase
	Predicate *expr.Lambda
}

// NewWhereNode creates a where node. predicate takes the input item.
func NewWhereNode(info ParseInfo, source ID, predicate *expr.Lambda) (*WhereNode, error) {
	if err := checkLambda("predicate", predicate, 1); err != nil {
		return nil, err
	}
	return &WhereNode{nodeBase: newBase(info, source), Predicate: predicate}, nil
}

// SelectNode projects its input.
type SelectNode struct {
	nodeBase
	Selector *expr.Lambda

	resolved resolvedCache
}

// NewSelectNode creates a select node. selector takes the input item.
func NewSelectNode(info ParseInfo, source ID, selector *expr.Lambda) (*SelectNode, error) {
	if err := checkLambda("selector", selector, 1); err != nil {
		return nil, err
	}
	return &SelectNode{nodeBase: newBase(info, source), Selector: selector}, nil
}

// OrderByNode sorts its input by a key. A ThenBy node adds a subordinate
// key to the ordering started by the OrderByNode it consumes.
type OrderByNode struct {
	nodeBase
	KeySelector *expr.Lambda
	Direction   model.Direction
	ThenBy      bool
}

// NewOrderByNode creates an orderBy or thenBy node.
func NewOrderByNode(info ParseInfo, source ID, keySelector *expr.Lambda, dir model.Direction, thenBy bool) (*OrderByNode, error) {
	if err := checkLambda("keySelector", keySelector, 1); err != nil {
		return nil, err
	}
	switch dir {
	case "":
		dir = model.Ascending
	case model.Ascending, model.Descending:
	default:
		return nil, &ArgumentError{Param: "direction", Message: fmt.Sprintf("must be %q or %q, got %q", model.Ascending, model.Descending, dir)}
	}
	return &OrderByNode{nodeBase: newBase(info, source), KeySelector: keySelector, Direction: dir, ThenBy: thenBy}, nil
}

// JoinNode correlates its input with an inner sequence by key equality
// and combines each matching pair with ResultSelector.
type JoinNode struct {
	nodeBase
	InnerSequence    expr.Expr
	OuterKeySelector *expr.Lambda
	InnerKeySelector *expr.Lambda
	// ResultSelector takes (outer item, inner item).
	ResultSelector *expr.Lambda

	resolved resolvedCache
}

// NewJoinNode creates a join node.
func NewJoinNode(info ParseInfo, source ID, inner expr.Expr, outerKey, innerKey, result *expr.Lambda) (*JoinNode, error) {
	if err := checkJoinArgs(inner, outerKey, innerKey, result); err != nil {
		return nil, err
	}
	return newJoinNode(info, source, inner, outerKey, innerKey, result), nil
}

func newJoinNode(info ParseInfo, source ID, inner expr.Expr, outerKey, innerKey, result *expr.Lambda) *JoinNode {
	return &JoinNode{
		nodeBase:         newBase(info, source),
		InnerSequence:    inner,
		OuterKeySelector: outerKey,
		InnerKeySelector: innerKey,
		ResultSelector:   result,
	}
}

func checkJoinArgs(inner expr.Expr, outerKey, innerKey, result *expr.Lambda) error {
	if inner == nil {
		return &ArgumentError{Param: "innerSequence", Message: "must not be nil"}
	}
	if err := checkLambda("outerKeySelector", outerKey, 1); err != nil {
		return err
	}
	if err := checkLambda("innerKeySelector", innerKey, 1); err != nil {
		return err
	}
	return checkLambda("resultSelector", result, 2)
}

// GroupJoinNode pairs each input item with the sequence of inner items
// whose key matches, and combines them with ResultSelector.
//
// Key matching is delegated to an internal JoinNode over the same source,
// inner sequence and key selectors. That join's result selector is a
// placeholder returning a typed null: the group join never uses the
// pairwise combination, only the join clause it builds.
type GroupJoinNode struct {
	nodeBase
	// ResultSelector takes (outer item, sequence of matching inner items).
	ResultSelector *expr.Lambda

	join     *JoinNode
	resolved resolvedCache
}

// NewGroupJoinNode creates a group join node.
func NewGroupJoinNode(info ParseInfo, source ID, inner expr.Expr, outerKey, innerKey, result *expr.Lambda) (*GroupJoinNode, error) {
	if err := checkJoinArgs(inner, outerKey, innerKey, result); err != nil {
		return nil, err
	}
	placeholder := expr.NewLambda(expr.Null(expr.TypeAny), outerKey.Params[0], innerKey.Params[0])
	return &GroupJoinNode{
		nodeBase:       newBase(info, source),
		ResultSelector: result,
		join:           newJoinNode(info, source, inner, outerKey, innerKey, placeholder),
	}, nil
}

// JoinNode returns the internal join the group join delegates to.
func (n *GroupJoinNode) JoinNode() *JoinNode { return n.join }

// ResultKind selects the result operator of a ResultNode.
type ResultKind string

// Result kinds.
const (
	ResultAll            ResultKind = "all"
	ResultAny            ResultKind = "any"
	ResultCount          ResultKind = "count"
	ResultDistinct       ResultKind = "distinct"
	ResultFirst          ResultKind = "first"
	ResultFirstOrDefault ResultKind = "firstOrDefault"
	ResultTake           ResultKind = "take"
	ResultSkip           ResultKind = "skip"
)

// ResultNode appends a result operator to the query model.
//
// For any, count and first an optional predicate filters the input first;
// it becomes a where clause ahead of the operator. For all the predicate
// is required and is owned by the operator.
type ResultNode struct {
	nodeBase
	Kind      ResultKind
	Predicate *expr.Lambda
	Count     int
}

// NewAllNode creates an all node.
func NewAllNode(info ParseInfo, source ID, predicate *expr.Lambda) (*ResultNode, error) {
	if err := checkLambda("predicate", predicate, 1); err != nil {
		return nil, err
	}
	return &ResultNode{nodeBase: newBase(info, source), Kind: ResultAll, Predicate: predicate}, nil
}

// NewAnyNode creates an any node. predicate may be nil.
func NewAnyNode(info ParseInfo, source ID, predicate *expr.Lambda) (*ResultNode, error) {
	return newFilteredResult(info, source, ResultAny, predicate)
}

// NewCountNode creates a count node. predicate may be nil.
func NewCountNode(info ParseInfo, source ID, predicate *expr.Lambda) (*ResultNode, error) {
	return newFilteredResult(info, source, ResultCount, predicate)
}

// NewFirstNode creates a first or firstOrDefault node. predicate may be nil.
func NewFirstNode(info ParseInfo, source ID, predicate *expr.Lambda, orDefault bool) (*ResultNode, error) {
	kind := ResultFirst
	if orDefault {
		kind = ResultFirstOrDefault
	}
	return newFilteredResult(info, source, kind, predicate)
}

func newFilteredResult(info ParseInfo, source ID, kind ResultKind, predicate *expr.Lambda) (*ResultNode, error) {
	if predicate != nil {
		if err := checkLambda("predicate", predicate, 1); err != nil {
			return nil, err
		}
	}
	return &ResultNode{nodeBase: newBase(info, source), Kind: kind, Predicate: predicate}, nil
}

// NewDistinctNode creates a distinct node.
func NewDistinctNode(info ParseInfo, source ID) (*ResultNode, error) {
	return &ResultNode{nodeBase: newBase(info, source), Kind: ResultDistinct}, nil
}

// NewTakeNode creates a take node.
func NewTakeNode(info ParseInfo, source ID, count int) (*ResultNode, error) {
	return newPagingResult(info, source, ResultTake, count)
}

// NewSkipNode creates a skip node.
func NewSkipNode(info ParseInfo, source ID, count int) (*ResultNode, error) {
	return newPagingResult(info, source, ResultSkip, count)
}

func newPagingResult(info ParseInfo, source ID, kind ResultKind, count int) (*ResultNode, error) {
	if count < 0 {
		return nil, &ArgumentError{Param: "count", Message: fmt.Sprintf("must not be negative, got %d", count)}
	}
	return &ResultNode{nodeBase: newBase(info, source), Kind: kind, Count: count}, nil
}

// filters reports whether the node adds a where clause for its predicate.
func (n *ResultNode) filters() bool {
	return n.Predicate != nil && n.Kind != ResultAll
}
