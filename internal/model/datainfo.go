package model

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
)

// ShapeKind classifies the data a query or result operator produces.
type ShapeKind string

// Shape kinds.
const (
	// KindSequence is a stream of items.
	KindSequence ShapeKind = "sequence"
	// KindScalar is a value computed from a whole sequence (Count, All).
	KindScalar ShapeKind = "scalar"
	// KindSingle is one item taken from a sequence (First).
	KindSingle ShapeKind = "single"
)

// DataInfo statically describes the data flowing out of a query model or
// result operator.
//
// This is a sealed interface - only types in this package implement it.
type DataInfo interface {
	Kind() ShapeKind
	DataType() expr.Type
	String() string
	dataInfo()
}

// SequenceInfo describes a sequence of items.
type SequenceInfo struct {
	ItemType expr.Type
	// ItemExpression describes one item, usually the select clause selector.
	ItemExpression expr.Expr
}

func (SequenceInfo) dataInfo() {}

// Kind implements DataInfo.
func (SequenceInfo) Kind() ShapeKind { return KindSequence }

// DataType implements DataInfo.
func (i SequenceInfo) DataType() expr.Type { return expr.SequenceOf(i.ItemType) }

func (i SequenceInfo) String() string { return fmt.Sprintf("sequence of %s", i.ItemType.OrAny()) }

// ScalarInfo describes an aggregate value.
type ScalarInfo struct {
	Type expr.Type
}

func (ScalarInfo) dataInfo() {}

// Kind implements DataInfo.
func (ScalarInfo) Kind() ShapeKind { return KindScalar }

// DataType implements DataInfo.
func (i ScalarInfo) DataType() expr.Type { return i.Type.OrAny() }

func (i ScalarInfo) String() string { return fmt.Sprintf("scalar of %s", i.Type.OrAny()) }

// SingleInfo describes one item selected from a sequence.
type SingleInfo struct {
	Type expr.Type
	// ReturnDefaultWhenEmpty is set when an empty input yields nil rather
	// than an error.
	ReturnDefaultWhenEmpty bool
}

func (SingleInfo) dataInfo() {}

// Kind implements DataInfo.
func (SingleInfo) Kind() ShapeKind { return KindSingle }

// DataType implements DataInfo.
func (i SingleInfo) DataType() expr.Type { return i.Type.OrAny() }

func (i SingleInfo) String() string { return fmt.Sprintf("single %s", i.Type.OrAny()) }

// ShapeError reports input data of the wrong shape.
type ShapeError struct {
	Operator string
	Expected ShapeKind
	Actual   ShapeKind
	DataType expr.Type
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %s input, got %s of %s", e.Operator, e.Expected, e.Actual, e.DataType.OrAny())
}

// RequireSequence returns in as a SequenceInfo, or a ShapeError naming op.
func RequireSequence(op string, in DataInfo) (SequenceInfo, error) {
	if seq, ok := in.(SequenceInfo); ok {
		return seq, nil
	}
	return SequenceInfo{}, &ShapeError{Operator: op, Expected: KindSequence, Actual: in.Kind(), DataType: in.DataType()}
}
